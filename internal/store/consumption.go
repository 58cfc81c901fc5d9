package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/juanlo017/cerves-app/internal/model"
)

const dayLayout = "2006-01-02"

type ConsumptionStore struct {
	db *sql.DB
}

func NewConsumptionStore(db *sql.DB) *ConsumptionStore {
	return &ConsumptionStore{db: db}
}

// ConsumptionFilter narrows a consumption listing. Zero fields do not filter.
type ConsumptionFilter struct {
	PlayerID string
	Scope    model.GroupScope
	Day      string
	FromDay  string
	ToDay    string
}

// NewConsumption is the input of Create. A zero ConsumedAt means now.
type NewConsumption struct {
	PlayerID   string
	DrinkID    string
	Qty        int
	EurSpent   *float64
	ConsumedAt time.Time
}

var consumptionCols = []string{
	"c.id", "c.player_id", "c.drink_id", "c.qty", "c.consumed_at", "c.day", "c.group_id", "c.eur_spent", "c.created_at",
	"d.id", "d.name", "d.category", "d.liters_per_unit", "d.kcal_per_unit", "d.eur_per_unit",
}

func scanConsumption(scanner interface{ Scan(...any) error }) (*model.ConsumptionWithDrink, error) {
	var c model.ConsumptionWithDrink
	var groupID sql.NullString
	var eurSpent sql.NullFloat64
	err := scanner.Scan(
		&c.ID, &c.PlayerID, &c.DrinkID, &c.Qty, &c.ConsumedAt, &c.Day, &groupID, &eurSpent, &c.CreatedAt,
		&c.Drink.ID, &c.Drink.Name, &c.Drink.Category, &c.Drink.LitersPerUnit, &c.Drink.KcalPerUnit, &c.Drink.EurPerUnit,
	)
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		c.GroupID = &groupID.String
	}
	if eurSpent.Valid {
		c.EurSpent = &eurSpent.Float64
	}
	return &c, nil
}

// applyScope restricts a query over "consumptions c" to the given group scope.
func applyScope(b sq.SelectBuilder, scope model.GroupScope) sq.SelectBuilder {
	switch scope.Kind {
	case model.ScopePersonal:
		return b.Where("c.group_id IS NULL")
	case model.ScopeGroup:
		return b.Where("c.id IN (SELECT consumption_id FROM consumption_groups WHERE group_id = ?)", scope.GroupID)
	}
	return b
}

func applyFilter(b sq.SelectBuilder, f ConsumptionFilter) sq.SelectBuilder {
	if f.PlayerID != "" {
		b = b.Where(sq.Eq{"c.player_id": f.PlayerID})
	}
	if f.Day != "" {
		b = b.Where(sq.Eq{"c.day": f.Day})
	}
	if f.FromDay != "" {
		b = b.Where(sq.GtOrEq{"c.day": f.FromDay})
	}
	if f.ToDay != "" {
		b = b.Where(sq.LtOrEq{"c.day": f.ToDay})
	}
	return applyScope(b, f.Scope)
}

// List returns consumptions with their drinks, newest first.
func (s *ConsumptionStore) List(f ConsumptionFilter) ([]model.ConsumptionWithDrink, error) {
	query, args, err := applyFilter(
		sq.Select(consumptionCols...).From("consumptions c").Join("drinks d ON d.id = c.drink_id"),
		f,
	).OrderBy("c.consumed_at DESC", "c.created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consumption query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consumptions: %w", err)
	}
	defer rows.Close()

	consumptions := []model.ConsumptionWithDrink{}
	for rows.Next() {
		c, err := scanConsumption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consumption: %w", err)
		}
		consumptions = append(consumptions, *c)
	}
	return consumptions, rows.Err()
}

func (s *ConsumptionStore) ListByPlayer(playerID string, scope model.GroupScope) ([]model.ConsumptionWithDrink, error) {
	return s.List(ConsumptionFilter{PlayerID: playerID, Scope: scope})
}

func (s *ConsumptionStore) ListByDay(playerID, day string, scope model.GroupScope) ([]model.ConsumptionWithDrink, error) {
	return s.List(ConsumptionFilter{PlayerID: playerID, Day: day, Scope: scope})
}

func (s *ConsumptionStore) ListByGroup(groupID string) ([]model.ConsumptionWithDrink, error) {
	return s.List(ConsumptionFilter{Scope: model.InGroup(groupID)})
}

// ListDays returns the distinct days on which the player drank, most recent first.
func (s *ConsumptionStore) ListDays(playerID string, scope model.GroupScope) ([]string, error) {
	query, args, err := applyScope(
		sq.Select("DISTINCT c.day").From("consumptions c").Where(sq.Eq{"c.player_id": playerID}),
		scope,
	).OrderBy("c.day DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build days query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consumption days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (s *ConsumptionStore) GetByID(id string) (*model.ConsumptionWithDrink, error) {
	query, args, err := sq.Select(consumptionCols...).
		From("consumptions c").
		Join("drinks d ON d.id = c.drink_id").
		Where(sq.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consumption query: %w", err)
	}
	c, err := scanConsumption(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get consumption: %w", err)
	}
	return c, nil
}

// Create inserts one untagged consumption. Group tagging goes through LinkGroups.
func (s *ConsumptionStore) Create(in NewConsumption) (*model.ConsumptionWithDrink, error) {
	consumedAt := in.ConsumedAt
	if consumedAt.IsZero() {
		consumedAt = time.Now()
	}
	id := uuid.NewString()
	query, args, err := sq.Insert("consumptions").
		Columns("id", "player_id", "drink_id", "qty", "consumed_at", "day", "group_id", "eur_spent").
		Values(id, in.PlayerID, in.DrinkID, in.Qty, formatTime(consumedAt), consumedAt.UTC().Format(dayLayout), nil, nullFloat(in.EurSpent)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consumption insert: %w", err)
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("insert consumption: %w", err)
	}
	return s.GetByID(id)
}

// LinkGroups tags a consumption with each group. Every link is attempted;
// the failures are joined into the returned error.
func (s *ConsumptionStore) LinkGroups(consumptionID string, groupIDs []string) error {
	var errs []error
	for _, gid := range groupIDs {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO consumption_groups (consumption_id, group_id) VALUES (?, ?)`,
			consumptionID, gid,
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("link group %s: %w", gid, err))
		}
	}
	return errors.Join(errs...)
}

// Update applies the non-nil fields of u. Moving consumed_at also moves day.
func (s *ConsumptionStore) Update(id string, u model.ConsumptionUpdate) (*model.ConsumptionWithDrink, error) {
	b := sq.Update("consumptions").Where(sq.Eq{"id": id})
	changed := false
	if u.Qty != nil {
		b = b.Set("qty", *u.Qty)
		changed = true
	}
	if u.ConsumedAt != nil {
		b = b.Set("consumed_at", formatTime(*u.ConsumedAt)).Set("day", u.ConsumedAt.UTC().Format(dayLayout))
		changed = true
	}
	if u.ClearGroup {
		b = b.Set("group_id", nil)
		changed = true
	} else if u.GroupID != nil {
		b = b.Set("group_id", *u.GroupID)
		changed = true
	}

	if changed {
		query, args, err := b.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build consumption update: %w", err)
		}
		if _, err := s.db.Exec(query, args...); err != nil {
			return nil, fmt.Errorf("update consumption: %w", err)
		}
	}
	return s.GetByID(id)
}

func (s *ConsumptionStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM consumptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete consumption: %w", err)
	}
	return nil
}

// PlayerStats sums the player's consumptions within scope.
func (s *ConsumptionStore) PlayerStats(playerID string, scope model.GroupScope) (*model.PlayerStats, error) {
	query, args, err := applyScope(
		sq.Select(
			"COALESCE(SUM(c.qty), 0)",
			"COALESCE(SUM(c.qty * d.liters_per_unit), 0)",
			"COALESCE(SUM(c.qty * d.kcal_per_unit), 0)",
			"COALESCE(SUM(c.eur_spent), 0)",
		).From("consumptions c").Join("drinks d ON d.id = c.drink_id").Where(sq.Eq{"c.player_id": playerID}),
		scope,
	).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}

	var st model.PlayerStats
	err = s.db.QueryRow(query, args...).Scan(&st.TotalDrinks, &st.TotalLiters, &st.TotalCalories, &st.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	}
	return &st, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
