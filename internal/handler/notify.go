package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/juanlo017/cerves-app/internal/push"
	"github.com/juanlo017/cerves-app/internal/store"
	"github.com/juanlo017/cerves-app/internal/websocket"
)

const pushTimeout = 15 * time.Second

// Notifier delivers real-time events over the websocket hub and, when
// configured, as web push notifications. Either channel may be nil.
type Notifier struct {
	hub         *websocket.Hub
	push        *push.Notifier
	invitations *store.InvitationStore
	logger      *slog.Logger
	async       bool
}

func NewNotifier(hub *websocket.Hub, pn *push.Notifier, is *store.InvitationStore, logger *slog.Logger) *Notifier {
	return &Notifier{hub: hub, push: pn, invitations: is, logger: logger, async: true}
}

// background runs fn detached from the request so a slow push service
// never delays the response.
func (n *Notifier) background(fn func(ctx context.Context)) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		fn(ctx)
	}
	if n.async {
		go run()
		return
	}
	run()
}

// InvitationBadge pushes the current pending count to userID's sockets.
func (n *Notifier) InvitationBadge(userID, action, invitationID string) {
	if n == nil || n.hub == nil {
		return
	}
	count, err := n.invitations.PendingCount(userID)
	if err != nil {
		n.logger.Error("pending invitation count", "user_id", userID, "error", err)
		return
	}
	n.hub.SendTo(websocket.NewMessage("invitation", action, invitationID, map[string]any{"pending": count}), userID)
}

// InvitationReceived updates the invitee's badge and sends a push.
func (n *Notifier) InvitationReceived(invitedUserID, invitationID, groupName, inviterName string) {
	if n == nil {
		return
	}
	n.InvitationBadge(invitedUserID, "received", invitationID)
	if n.push == nil {
		return
	}
	n.background(func(ctx context.Context) {
		n.push.InvitationReceived(ctx, invitedUserID, groupName, inviterName)
	})
}

// GroupChanged tells connected members to refresh a group's views.
func (n *Notifier) GroupChanged(groupID, action string, memberUserIDs []string) {
	if n == nil || n.hub == nil {
		return
	}
	n.hub.SendTo(websocket.NewMessage("group", action, groupID, nil), memberUserIDs...)
}

// MemberJoined refreshes the group for members and pushes to everyone but
// the newcomer.
func (n *Notifier) MemberJoined(groupID, groupName, joinedUserID, playerName string, memberUserIDs []string) {
	if n == nil {
		return
	}
	n.GroupChanged(groupID, "member_joined", memberUserIDs)
	if n.push == nil {
		return
	}
	others := make([]string, 0, len(memberUserIDs))
	for _, uid := range memberUserIDs {
		if uid != joinedUserID {
			others = append(others, uid)
		}
	}
	if len(others) == 0 {
		return
	}
	n.background(func(ctx context.Context) {
		n.push.GroupJoined(ctx, others, groupID, groupName, playerName)
	})
}
