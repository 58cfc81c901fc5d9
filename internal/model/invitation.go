package model

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

type Invitation struct {
	ID            string           `json:"id"`
	GroupID       string           `json:"group_id"`
	InvitedBy     string           `json:"invited_by"`
	InvitedUserID string           `json:"invited_user_id"`
	Status        InvitationStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	RespondedAt   *time.Time       `json:"responded_at"`
}

type InvitationGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type Inviter struct {
	DisplayName string `json:"display_name"`
	AvatarKey   string `json:"avatar_key"`
}

type InvitationWithDetails struct {
	Invitation
	Group   InvitationGroup `json:"groups"`
	Inviter *Inviter        `json:"inviter_player"`
}
