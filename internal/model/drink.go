package model

import "time"

type Drink struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	CategorySlug  string    `json:"category_slug"`
	LitersPerUnit float64   `json:"liters_per_unit"`
	KcalPerUnit   float64   `json:"kcal_per_unit"`
	EurPerUnit    float64   `json:"eur_per_unit"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// DrinkUpdate carries the fields of a partial drink update; nil fields are left unchanged.
type DrinkUpdate struct {
	Name          *string  `json:"name"`
	Category      *string  `json:"category"`
	LitersPerUnit *float64 `json:"liters_per_unit"`
	KcalPerUnit   *float64 `json:"kcal_per_unit"`
	EurPerUnit    *float64 `json:"eur_per_unit"`
	IsActive      *bool    `json:"is_active"`
}
