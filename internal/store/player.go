package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/juanlo017/cerves-app/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const searchLimit = 10

type PlayerStore struct {
	db *sql.DB
}

func NewPlayerStore(db *sql.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func scanPlayer(scanner interface{ Scan(...any) error }) (*model.Player, error) {
	var p model.Player
	err := scanner.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.AvatarKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const playerCols = `id, user_id, display_name, avatar_key, created_at, updated_at`

// nameKey is the search form of a display name. SQLite's LIKE only ignores
// ASCII case, so names are matched on a lowercased copy.
func nameKey(name string) string {
	return cases.Lower(language.Spanish).String(strings.TrimSpace(name))
}

func (s *PlayerStore) Create(userID, displayName, avatarKey, secretHash string) (*model.Player, error) {
	if avatarKey == "" {
		avatarKey = "🍺"
	}
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO players (id, user_id, display_name, display_name_key, avatar_key, secret_hash) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, displayName, nameKey(displayName), avatarKey, secretHash,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("insert player: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}
	return s.GetByID(id)
}

func (s *PlayerStore) GetByID(id string) (*model.Player, error) {
	row := s.db.QueryRow(`SELECT `+playerCols+` FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *PlayerStore) GetByUserID(userID string) (*model.Player, error) {
	row := s.db.QueryRow(`SELECT `+playerCols+` FROM players WHERE user_id = ?`, userID)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player by user id: %w", err)
	}
	return p, nil
}

// SecretHash returns the stored device secret hash for a user id.
// A missing player yields ErrNotFound.
func (s *PlayerStore) SecretHash(userID string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT secret_hash FROM players WHERE user_id = ?`, userID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get secret hash: %w", err)
	}
	return hash, nil
}

func (s *PlayerStore) SetSecretHash(id, hash string) error {
	_, err := s.db.Exec(`UPDATE players SET secret_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("set secret hash: %w", err)
	}
	return nil
}

// Update changes the non-nil profile fields and returns the updated player.
func (s *PlayerStore) Update(id string, displayName, avatarKey *string) (*model.Player, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if displayName != nil {
		existing.DisplayName = *displayName
	}
	if avatarKey != nil {
		existing.AvatarKey = *avatarKey
	}
	_, err = s.db.Exec(
		`UPDATE players SET display_name = ?, display_name_key = ?, avatar_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		existing.DisplayName, nameKey(existing.DisplayName), existing.AvatarKey, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update player: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the player with their memberships and consumptions. Groups
// the player administered get a new admin from the remaining members.
func (s *PlayerStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT gm.group_id FROM group_members gm
		 JOIN players p ON p.user_id = gm.user_id
		 WHERE p.id = ? AND gm.role = ?`,
		id, model.RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("list administered groups: %w", err)
	}
	var groupIDs []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			rows.Close()
			return fmt.Errorf("scan group id: %w", err)
		}
		groupIDs = append(groupIDs, gid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM players WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	for _, gid := range groupIDs {
		if err := promoteIfLeaderless(tx, gid); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete player: %w", err)
	}
	return nil
}

// ListGroups returns the memberships of the player, newest first, with their groups.
func (s *PlayerStore) ListGroups(playerID string) ([]model.Membership, error) {
	rows, err := s.db.Query(
		`SELECT gm.id, gm.group_id, gm.user_id, gm.role, gm.joined_at,
		        g.id, g.code, g.name, g.created_at
		 FROM group_members gm
		 JOIN players p ON p.user_id = gm.user_id
		 JOIN groups g ON g.id = gm.group_id
		 WHERE p.id = ?
		 ORDER BY gm.joined_at DESC`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list player groups: %w", err)
	}
	defer rows.Close()

	memberships := []model.Membership{}
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(
			&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
			&m.Group.ID, &m.Group.Code, &m.Group.Name, &m.Group.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// RefreshNameKeys recomputes stale search keys and returns how many changed.
func (s *PlayerStore) RefreshNameKeys() (int, error) {
	rows, err := s.db.Query(`SELECT id, display_name, display_name_key FROM players`)
	if err != nil {
		return 0, fmt.Errorf("list player names: %w", err)
	}
	stale := make(map[string]string)
	for rows.Next() {
		var id, name, key string
		if err := rows.Scan(&id, &name, &key); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan player name: %w", err)
		}
		if k := nameKey(name); k != key {
			stale[id] = k
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for id, key := range stale {
		if _, err := s.db.Exec(`UPDATE players SET display_name_key = ? WHERE id = ?`, key, id); err != nil {
			return 0, fmt.Errorf("update name key: %w", err)
		}
	}
	return len(stale), nil
}

// Search finds players whose display name contains query, ignoring case,
// skipping the given user ids.
func (s *PlayerStore) Search(query string, excludeUserIDs []string) ([]model.PlayerSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.PlayerSummary{}, nil
	}

	sqlStr := `SELECT id, user_id, display_name, avatar_key FROM players WHERE display_name_key LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(nameKey(query)) + "%"}
	if len(excludeUserIDs) > 0 {
		sqlStr += ` AND user_id NOT IN (?` + strings.Repeat(`, ?`, len(excludeUserIDs)-1) + `)`
		for _, id := range excludeUserIDs {
			args = append(args, id)
		}
	}
	sqlStr += ` ORDER BY display_name ASC LIMIT ?`
	args = append(args, searchLimit)

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}
	defer rows.Close()

	players := []model.PlayerSummary{}
	for rows.Next() {
		var p model.PlayerSummary
		if err := rows.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.AvatarKey); err != nil {
			return nil, fmt.Errorf("scan player summary: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Summaries returns the public fields of the given players keyed by id.
func (s *PlayerStore) Summaries(ids []string) (map[string]model.PlayerSummary, error) {
	out := make(map[string]model.PlayerSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Query(
		`SELECT id, user_id, display_name, avatar_key FROM players WHERE id IN (?`+strings.Repeat(`, ?`, len(ids)-1)+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list player summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.PlayerSummary
		if err := rows.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.AvatarKey); err != nil {
			return nil, fmt.Errorf("scan player summary: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
