package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/juanlo017/cerves-app/internal/model"
)

// codeAlphabet omits characters that are easy to confuse (I, O, 0, 1).
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 5
)

type GroupStore struct {
	db *sql.DB
}

func NewGroupStore(db *sql.DB) *GroupStore {
	return &GroupStore{db: db}
}

func scanGroup(scanner interface{ Scan(...any) error }) (*model.Group, error) {
	var g model.Group
	err := scanner.Scan(&g.ID, &g.Code, &g.Name, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGroupMember(scanner interface{ Scan(...any) error }) (*model.GroupMember, error) {
	var m model.GroupMember
	err := scanner.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const groupCols = `id, code, name, created_at`
const groupMemberCols = `id, group_id, user_id, role, joined_at`

// GenerateCode returns a random group code.
func GenerateCode() (string, error) {
	var sb strings.Builder
	base := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generate group code: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// insertGroup inserts a group. An empty code is generated, retrying on collisions;
// an explicit code that is taken yields ErrDuplicate.
func insertGroup(e execer, name, code string) (string, error) {
	id := uuid.NewString()
	explicit := code != ""
	for attempt := 0; attempt < codeAttempts; attempt++ {
		if !explicit {
			generated, err := GenerateCode()
			if err != nil {
				return "", err
			}
			code = generated
		}
		_, err := e.Exec(
			`INSERT INTO groups (id, code, name) VALUES (?, ?, ?)`,
			id, strings.ToUpper(code), name,
		)
		if err == nil {
			return id, nil
		}
		if !isUniqueViolation(err) {
			return "", fmt.Errorf("insert group: %w", err)
		}
		if explicit {
			return "", fmt.Errorf("insert group: %w", ErrDuplicate)
		}
	}
	return "", fmt.Errorf("insert group: no free code after %d attempts: %w", codeAttempts, ErrDuplicate)
}

// Create inserts a group with no members.
func (s *GroupStore) Create(name, code string) (*model.Group, error) {
	id, err := insertGroup(s.db, name, code)
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// CreateOwned inserts a group and makes ownerUserID its admin in one transaction.
func (s *GroupStore) CreateOwned(name, code, ownerUserID string) (*model.Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := insertGroup(tx, name, code)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		`INSERT INTO group_members (id, group_id, user_id, role) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), id, ownerUserID, model.RoleAdmin,
	); err != nil {
		return nil, fmt.Errorf("add owner: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit group: %w", err)
	}
	return s.GetByID(id)
}

func (s *GroupStore) GetByID(id string) (*model.Group, error) {
	row := s.db.QueryRow(`SELECT `+groupCols+` FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *GroupStore) GetByCode(code string) (*model.Group, error) {
	row := s.db.QueryRow(`SELECT `+groupCols+` FROM groups WHERE code = ?`, strings.ToUpper(strings.TrimSpace(code)))
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group by code: %w", err)
	}
	return g, nil
}

// Update changes the non-nil fields. Returns nil when the group does not exist.
func (s *GroupStore) Update(id string, name, code *string) (*model.Group, error) {
	g, err := s.GetByID(id)
	if err != nil || g == nil {
		return nil, err
	}
	if name != nil {
		g.Name = *name
	}
	if code != nil {
		g.Code = strings.ToUpper(*code)
	}
	_, err = s.db.Exec(`UPDATE groups SET name = ?, code = ? WHERE id = ?`, g.Name, g.Code, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("update group: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return s.GetByID(id)
}

func (s *GroupStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (s *GroupStore) AddMember(groupID, userID, role string) (*model.GroupMember, error) {
	if role == "" {
		role = model.RoleMember
	}
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO group_members (id, group_id, user_id, role) VALUES (?, ?, ?, ?)`,
		id, groupID, userID, role,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("add member: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return s.GetMember(groupID, userID)
}

// RemoveMember drops userID from the group. When the last admin leaves,
// the longest-standing remaining member takes over.
func (s *GroupStore) RemoveMember(groupID, userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if err := promoteIfLeaderless(tx, groupID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove member: %w", err)
	}
	return nil
}

// promoteIfLeaderless makes the oldest member admin when the group has
// members but no admin.
func promoteIfLeaderless(e execer, groupID string) error {
	_, err := e.Exec(
		`UPDATE group_members SET role = ?
		 WHERE id = (SELECT id FROM group_members WHERE group_id = ? ORDER BY joined_at ASC, rowid ASC LIMIT 1)
		   AND NOT EXISTS (SELECT 1 FROM group_members WHERE group_id = ? AND role = ?)`,
		model.RoleAdmin, groupID, groupID, model.RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("promote member: %w", err)
	}
	return nil
}

func (s *GroupStore) GetMember(groupID, userID string) (*model.GroupMember, error) {
	row := s.db.QueryRow(
		`SELECT `+groupMemberCols+` FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	m, err := scanGroupMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *GroupStore) IsMember(groupID, userID string) (bool, error) {
	m, err := s.GetMember(groupID, userID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// ListMembers returns the group's members with their player profile, oldest first.
func (s *GroupStore) ListMembers(groupID string) ([]model.GroupMemberWithPlayer, error) {
	rows, err := s.db.Query(
		`SELECT gm.id, gm.group_id, gm.user_id, gm.role, gm.joined_at,
		        p.id, p.user_id, p.display_name, p.avatar_key
		 FROM group_members gm
		 JOIN players p ON p.user_id = gm.user_id
		 WHERE gm.group_id = ?
		 ORDER BY gm.joined_at ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []model.GroupMemberWithPlayer{}
	for rows.Next() {
		var m model.GroupMemberWithPlayer
		if err := rows.Scan(
			&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
			&m.Player.ID, &m.Player.UserID, &m.Player.DisplayName, &m.Player.AvatarKey,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// MemberUserIDs returns the user ids of every member of the group.
func (s *GroupStore) MemberUserIDs(groupID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT user_id FROM group_members WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list member user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Leaderboard totals the group's consumptions per player, most drinks first.
// Spend is priced from the catalog.
func (s *GroupStore) Leaderboard(groupID string) ([]model.GroupLeaderboardEntry, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.display_name, p.avatar_key,
		        SUM(c.qty),
		        SUM(c.qty * d.liters_per_unit),
		        SUM(c.qty * d.kcal_per_unit),
		        SUM(c.qty * d.eur_per_unit)
		 FROM consumptions c
		 JOIN drinks d ON d.id = c.drink_id
		 JOIN players p ON p.id = c.player_id
		 WHERE c.group_id = ?
		    OR c.id IN (SELECT consumption_id FROM consumption_groups WHERE group_id = ?)
		 GROUP BY p.id, p.display_name, p.avatar_key
		 ORDER BY SUM(c.qty) DESC, MIN(c.consumed_at) ASC`,
		groupID, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("group leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []model.GroupLeaderboardEntry{}
	for rows.Next() {
		var e model.GroupLeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.DisplayName, &e.AvatarKey, &e.TotalDrinks, &e.TotalLiters, &e.TotalCalories, &e.TotalSpent); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
