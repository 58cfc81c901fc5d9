package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/stats"
)

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// SubscriptionStore is the subset of the push store the notifier needs.
type SubscriptionStore interface {
	ListByPlayer(playerID string) ([]model.PushSubscription, error)
	ListByUserID(userID string) ([]model.PushSubscription, error)
	ListPlayerIDs() ([]string, error)
	DeleteByEndpoint(endpoint string) error
}

// WeeklySource produces a player's weekly dashboard.
type WeeklySource interface {
	Weekly(playerID string, weekOffset int) (*stats.Weekly, error)
}

// Notifier fans payloads out to every device a player registered and
// prunes subscriptions the push service reports as gone.
type Notifier struct {
	sender Sender
	subs   SubscriptionStore
	logger *slog.Logger
}

func NewNotifier(sender Sender, subs SubscriptionStore, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, subs: subs, logger: logger}
}

// NotifyUser sends payload to every subscription of the player signed in as userID.
func (n *Notifier) NotifyUser(ctx context.Context, userID string, payload Payload) int {
	subs, err := n.subs.ListByUserID(userID)
	if err != nil {
		n.logger.Error("list subscriptions", "user_id", userID, "error", err)
		return 0
	}
	return n.deliver(ctx, subs, payload)
}

// NotifyPlayer sends payload to every subscription of playerID.
func (n *Notifier) NotifyPlayer(ctx context.Context, playerID string, payload Payload) int {
	subs, err := n.subs.ListByPlayer(playerID)
	if err != nil {
		n.logger.Error("list subscriptions", "player_id", playerID, "error", err)
		return 0
	}
	return n.deliver(ctx, subs, payload)
}

func (n *Notifier) deliver(ctx context.Context, subs []model.PushSubscription, payload Payload) int {
	sent := 0
	for i := range subs {
		sub := &subs[i]
		err := n.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrExpired):
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "id", sub.ID, "error", err)
			} else {
				n.logger.Info("removed expired subscription", "id", sub.ID, "player_id", sub.PlayerID)
			}
		default:
			n.logger.Warn("send push", "id", sub.ID, "type", payload.Type, "error", err)
		}
	}
	return sent
}

// InvitationReceived tells the invitee someone asked them to join a group.
func (n *Notifier) InvitationReceived(ctx context.Context, invitedUserID, groupName, inviterName string) int {
	body := fmt.Sprintf("Te han invitado a %s", groupName)
	if inviterName != "" {
		body = fmt.Sprintf("%s te ha invitado a %s", inviterName, groupName)
	}
	return n.NotifyUser(ctx, invitedUserID, Payload{
		Title: "Nueva invitación",
		Body:  body,
		URL:   "/invitations",
		Tag:   "invitation",
		Type:  model.NotifTypeInvitation,
	})
}

// GroupJoined tells existing members that a player accepted an invitation.
func (n *Notifier) GroupJoined(ctx context.Context, memberUserIDs []string, groupID, groupName, playerName string) int {
	payload := Payload{
		Title: groupName,
		Body:  fmt.Sprintf("%s se ha unido al grupo", playerName),
		URL:   "/groups/" + groupID,
		Tag:   "group-joined",
		Type:  model.NotifTypeGroupJoined,
	}
	sent := 0
	for _, uid := range memberUserIDs {
		sent += n.NotifyUser(ctx, uid, payload)
	}
	return sent
}

// WeeklyRecap sends every subscribed player a summary of last week.
// Players who drank nothing get no notification.
func (n *Notifier) WeeklyRecap(ctx context.Context, weekly WeeklySource) (int, error) {
	playerIDs, err := n.subs.ListPlayerIDs()
	if err != nil {
		return 0, fmt.Errorf("list subscribed players: %w", err)
	}

	sent := 0
	for _, pid := range playerIDs {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		w, err := weekly.Weekly(pid, -1)
		if err != nil {
			n.logger.Error("weekly recap stats", "player_id", pid, "error", err)
			continue
		}
		payload, ok := RecapPayload(w)
		if !ok {
			continue
		}
		sent += n.NotifyPlayer(ctx, pid, payload)
	}
	return sent, nil
}

// RecapPayload renders a weekly dashboard as a notification.
func RecapPayload(w *stats.Weekly) (Payload, bool) {
	if w == nil || w.WeekStats.TotalDrinks == 0 {
		return Payload{}, false
	}
	body := fmt.Sprintf("%d bebidas, %.1f L (%d%% del objetivo)",
		w.WeekStats.TotalDrinks, w.CurrentProgress, w.PercentageComplete)
	if w.WeekStats.FavoriteDrink != nil {
		body += fmt.Sprintf(". Favorita: %s", *w.WeekStats.FavoriteDrink)
	}
	return Payload{
		Title: "Tu semana " + w.WeekRange.Display,
		Body:  body,
		URL:   "/stats",
		Tag:   "weekly-recap",
		Type:  model.NotifTypeWeeklyRecap,
	}, true
}
