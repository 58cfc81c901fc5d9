package model

import "time"

// Notification type constants
const (
	NotifTypeInvitation  = "invitation"
	NotifTypeWeeklyRecap = "weekly_recap"
	NotifTypeGroupJoined = "group_joined"
)

type PushSubscription struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
