package model

import "time"

type Consumption struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	DrinkID    string    `json:"drink_id"`
	Qty        int       `json:"qty"`
	ConsumedAt time.Time `json:"consumed_at"`
	Day        string    `json:"day"`
	GroupID    *string   `json:"group_id"`
	EurSpent   *float64  `json:"eur_spent"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConsumptionDrink is the drink data joined onto a consumption row.
type ConsumptionDrink struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	LitersPerUnit float64 `json:"liters_per_unit"`
	KcalPerUnit   float64 `json:"kcal_per_unit"`
	EurPerUnit    float64 `json:"eur_per_unit"`
}

type ConsumptionWithDrink struct {
	Consumption
	Drink ConsumptionDrink `json:"drinks"`
}

// Liters returns the volume of the consumption.
func (c ConsumptionWithDrink) Liters() float64 {
	return float64(c.Qty) * c.Drink.LitersPerUnit
}

// Calories returns the energy of the consumption.
func (c ConsumptionWithDrink) Calories() float64 {
	return float64(c.Qty) * c.Drink.KcalPerUnit
}

// Spent returns the recorded amount spent, zero when none was recorded.
func (c ConsumptionWithDrink) Spent() float64 {
	if c.EurSpent == nil {
		return 0
	}
	return *c.EurSpent
}

// ConsumptionUpdate carries the fields of a partial consumption update.
type ConsumptionUpdate struct {
	Qty        *int       `json:"qty"`
	ConsumedAt *time.Time `json:"consumed_at"`
	GroupID    *string    `json:"group_id"`
	ClearGroup bool       `json:"-"`
}

// ScopeKind selects which consumptions a read considers.
type ScopeKind int

const (
	// ScopeAll includes every consumption of the player.
	ScopeAll ScopeKind = iota
	// ScopePersonal includes only consumptions without a group tag.
	ScopePersonal
	// ScopeGroup includes consumptions linked to one group.
	ScopeGroup
)

// GroupScope filters consumption reads by group.
type GroupScope struct {
	Kind    ScopeKind
	GroupID string
}

func AllScope() GroupScope              { return GroupScope{Kind: ScopeAll} }
func PersonalScope() GroupScope         { return GroupScope{Kind: ScopePersonal} }
func InGroup(groupID string) GroupScope { return GroupScope{Kind: ScopeGroup, GroupID: groupID} }

// PlayerStats are lifetime totals over a set of consumptions.
type PlayerStats struct {
	TotalDrinks   int     `json:"total_drinks"`
	TotalLiters   float64 `json:"total_liters"`
	TotalCalories float64 `json:"total_calories"`
	TotalSpent    float64 `json:"total_spent"`
}
