package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juanlo017/cerves-app/internal/model"
)

type InvitationStore struct {
	db *sql.DB
}

func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

func scanInvitation(scanner interface{ Scan(...any) error }) (*model.Invitation, error) {
	var inv model.Invitation
	var respondedAt sql.NullTime
	err := scanner.Scan(&inv.ID, &inv.GroupID, &inv.InvitedBy, &inv.InvitedUserID, &inv.Status, &inv.CreatedAt, &respondedAt)
	if err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		inv.RespondedAt = &respondedAt.Time
	}
	return &inv, nil
}

const invitationCols = `id, group_id, invited_by, invited_user_id, status, created_at, responded_at`

// Create records a pending invitation. A second pending invitation for the
// same user and group yields ErrDuplicate.
func (s *InvitationStore) Create(groupID, invitedBy, invitedUserID string) (*model.Invitation, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO invitations (id, group_id, invited_by, invited_user_id, status) VALUES (?, ?, ?, ?, ?)`,
		id, groupID, invitedBy, invitedUserID, model.InvitationPending,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("insert invitation: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	return s.GetByID(id)
}

func (s *InvitationStore) GetByID(id string) (*model.Invitation, error) {
	row := s.db.QueryRow(`SELECT `+invitationCols+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// ListPendingForUser returns the user's inbox, newest first, with the group
// and the inviter's profile. Inviter is nil when the inviting player is gone.
func (s *InvitationStore) ListPendingForUser(userID string) ([]model.InvitationWithDetails, error) {
	rows, err := s.db.Query(
		`SELECT i.id, i.group_id, i.invited_by, i.invited_user_id, i.status, i.created_at, i.responded_at,
		        g.id, g.name, g.code,
		        p.display_name, p.avatar_key
		 FROM invitations i
		 JOIN groups g ON g.id = i.group_id
		 LEFT JOIN players p ON p.user_id = i.invited_by
		 WHERE i.invited_user_id = ? AND i.status = ?
		 ORDER BY i.created_at DESC, i.rowid DESC`,
		userID, model.InvitationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}
	defer rows.Close()

	invitations := []model.InvitationWithDetails{}
	for rows.Next() {
		var inv model.InvitationWithDetails
		var respondedAt sql.NullTime
		var inviterName, inviterAvatar sql.NullString
		if err := rows.Scan(
			&inv.ID, &inv.GroupID, &inv.InvitedBy, &inv.InvitedUserID, &inv.Status, &inv.CreatedAt, &respondedAt,
			&inv.Group.ID, &inv.Group.Name, &inv.Group.Code,
			&inviterName, &inviterAvatar,
		); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		if respondedAt.Valid {
			inv.RespondedAt = &respondedAt.Time
		}
		if inviterName.Valid {
			inv.Inviter = &model.Inviter{DisplayName: inviterName.String, AvatarKey: inviterAvatar.String}
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// PendingUserIDs returns the users with a pending invitation to the group.
func (s *InvitationStore) PendingUserIDs(groupID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT invited_user_id FROM invitations WHERE group_id = ? AND status = ?`,
		groupID, model.InvitationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending invitees: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan invitee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Accept marks a pending invitation addressed to userID as accepted and adds
// the user to the group. Anything else yields ErrAlreadyResponded.
func (s *InvitationStore) Accept(id, userID string) (*model.Invitation, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var groupID string
	err = tx.QueryRow(
		`SELECT group_id FROM invitations WHERE id = ? AND invited_user_id = ? AND status = ?`,
		id, userID, model.InvitationPending,
	).Scan(&groupID)
	if err == sql.ErrNoRows {
		return nil, ErrAlreadyResponded
	}
	if err != nil {
		return nil, fmt.Errorf("get pending invitation: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE invitations SET status = ?, responded_at = ? WHERE id = ?`,
		model.InvitationAccepted, formatTime(time.Now()), id,
	); err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO group_members (id, group_id, user_id, role) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), groupID, userID, model.RoleMember,
	); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}
	return s.GetByID(id)
}

// Decline marks a pending invitation addressed to userID as declined.
func (s *InvitationStore) Decline(id, userID string) (*model.Invitation, error) {
	result, err := s.db.Exec(
		`UPDATE invitations SET status = ?, responded_at = ?
		 WHERE id = ? AND invited_user_id = ? AND status = ?`,
		model.InvitationDeclined, formatTime(time.Now()), id, userID, model.InvitationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("decline invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrAlreadyResponded
	}
	return s.GetByID(id)
}

func (s *InvitationStore) PendingCount(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM invitations WHERE invited_user_id = ? AND status = ?`,
		userID, model.InvitationPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending invitations: %w", err)
	}
	return count, nil
}

// ExpireOlderThan expires pending invitations created before the cutoff and
// returns the affected invitee user ids.
func (s *InvitationStore) ExpireOlderThan(before time.Time) ([]string, error) {
	cutoff := formatTime(before)
	rows, err := s.db.Query(
		`SELECT DISTINCT invited_user_id FROM invitations WHERE status = ? AND created_at < ?`,
		model.InvitationPending, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("select stale invitations: %w", err)
	}
	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan invitee: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(users) == 0 {
		return nil, nil
	}
	_, err = s.db.Exec(
		`UPDATE invitations SET status = ?, responded_at = ? WHERE status = ? AND created_at < ?`,
		model.InvitationExpired, formatTime(time.Now()), model.InvitationPending, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("expire invitations: %w", err)
	}
	return users, nil
}
