package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Group struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type GroupMember struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupMemberWithPlayer is a membership joined with the member's player row.
type GroupMemberWithPlayer struct {
	GroupMember
	Player PlayerSummary `json:"players"`
}

// Membership is a membership joined with its group, as listed for a player.
type Membership struct {
	GroupMember
	Group Group `json:"groups"`
}

// GroupLeaderboardEntry holds a player's totals inside a group.
type GroupLeaderboardEntry struct {
	PlayerID      string  `json:"player_id"`
	DisplayName   string  `json:"display_name"`
	AvatarKey     string  `json:"avatar_key"`
	TotalDrinks   int     `json:"total_drinks"`
	TotalLiters   float64 `json:"total_liters"`
	TotalCalories float64 `json:"total_calories"`
	TotalSpent    float64 `json:"total_spent"`
}
