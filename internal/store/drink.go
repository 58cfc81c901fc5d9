package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/juanlo017/cerves-app/internal/model"
)

type DrinkStore struct {
	db *sql.DB
}

func NewDrinkStore(db *sql.DB) *DrinkStore {
	return &DrinkStore{db: db}
}

func scanDrink(scanner interface{ Scan(...any) error }) (*model.Drink, error) {
	var d model.Drink
	var active int
	err := scanner.Scan(&d.ID, &d.Name, &d.Category, &d.CategorySlug, &d.LitersPerUnit, &d.KcalPerUnit, &d.EurPerUnit, &active, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.IsActive = active != 0
	return &d, nil
}

const drinkCols = `id, name, category, category_slug, liters_per_unit, kcal_per_unit, eur_per_unit, is_active, created_at`

// CategorySlug normalises a category label ("Cóctel") to its lookup key ("coctel").
func CategorySlug(category string) string {
	return slug.Make(category)
}

func (s *DrinkStore) Create(name, category string, liters, kcal, eur float64) (*model.Drink, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO drinks (id, name, category, category_slug, liters_per_unit, kcal_per_unit, eur_per_unit)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, category, CategorySlug(category), liters, kcal, eur,
	)
	if err != nil {
		return nil, fmt.Errorf("insert drink: %w", err)
	}
	return s.GetByID(id)
}

func (s *DrinkStore) GetByID(id string) (*model.Drink, error) {
	row := s.db.QueryRow(`SELECT `+drinkCols+` FROM drinks WHERE id = ?`, id)
	d, err := scanDrink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get drink: %w", err)
	}
	return d, nil
}

func (s *DrinkStore) ListActive() ([]model.Drink, error) {
	return s.list(`SELECT `+drinkCols+` FROM drinks WHERE is_active = 1 ORDER BY name ASC`)
}

func (s *DrinkStore) ListAll() ([]model.Drink, error) {
	return s.list(`SELECT ` + drinkCols + ` FROM drinks ORDER BY name ASC`)
}

func (s *DrinkStore) ListByCategory(category string) ([]model.Drink, error) {
	return s.list(
		`SELECT `+drinkCols+` FROM drinks WHERE is_active = 1 AND category_slug = ? ORDER BY name ASC`,
		CategorySlug(category),
	)
}

func (s *DrinkStore) list(query string, args ...any) ([]model.Drink, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	defer rows.Close()

	drinks := []model.Drink{}
	for rows.Next() {
		d, err := scanDrink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan drink: %w", err)
		}
		drinks = append(drinks, *d)
	}
	return drinks, rows.Err()
}

// Update applies the non-nil fields of u. Returns nil when the drink does not exist.
func (s *DrinkStore) Update(id string, u model.DrinkUpdate) (*model.Drink, error) {
	d, err := s.GetByID(id)
	if err != nil || d == nil {
		return nil, err
	}
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Category != nil {
		d.Category = *u.Category
	}
	if u.LitersPerUnit != nil {
		d.LitersPerUnit = *u.LitersPerUnit
	}
	if u.KcalPerUnit != nil {
		d.KcalPerUnit = *u.KcalPerUnit
	}
	if u.EurPerUnit != nil {
		d.EurPerUnit = *u.EurPerUnit
	}
	if u.IsActive != nil {
		d.IsActive = *u.IsActive
	}

	_, err = s.db.Exec(
		`UPDATE drinks SET name = ?, category = ?, category_slug = ?, liters_per_unit = ?, kcal_per_unit = ?, eur_per_unit = ?, is_active = ?
		 WHERE id = ?`,
		d.Name, d.Category, CategorySlug(d.Category), d.LitersPerUnit, d.KcalPerUnit, d.EurPerUnit, boolToInt(d.IsActive), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update drink: %w", err)
	}
	return s.GetByID(id)
}

// Deactivate hides a drink from the catalog without touching past consumptions.
func (s *DrinkStore) Deactivate(id string) error {
	_, err := s.db.Exec(`UPDATE drinks SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate drink: %w", err)
	}
	return nil
}

// Delete removes a drink. Drinks with logged consumptions return ErrInUse;
// deactivate those instead.
func (s *DrinkStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM drinks WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return fmt.Errorf("delete drink: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
