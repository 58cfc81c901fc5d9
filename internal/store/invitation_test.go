package store

import (
	"errors"
	"testing"
	"time"

	"github.com/juanlo017/cerves-app/internal/model"
)

type invitationFixture struct {
	is    *InvitationStore
	gs    *GroupStore
	ps    *PlayerStore
	group *model.Group
}

func setupInvitationTest(t *testing.T) invitationFixture {
	t.Helper()
	db := setupTestDB(t)
	ps := NewPlayerStore(db)
	gs := NewGroupStore(db)
	createTestPlayer(t, ps, "owner", "Juan")
	createTestPlayer(t, ps, "guest", "Pedro")
	g, err := gs.CreateOwned("Peña", "", "owner")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return invitationFixture{is: NewInvitationStore(db), gs: gs, ps: ps, group: g}
}

func TestInvitationCreate(t *testing.T) {
	f := setupInvitationTest(t)

	inv, err := f.is.Create(f.group.ID, "owner", "guest")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Status != model.InvitationPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}
	if inv.RespondedAt != nil {
		t.Error("responded_at should be nil")
	}

	if _, err := f.is.Create(f.group.ID, "owner", "guest"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second pending err = %v, want ErrDuplicate", err)
	}
}

func TestInvitationListPending(t *testing.T) {
	f := setupInvitationTest(t)
	f.is.Create(f.group.ID, "owner", "guest")
	other, _ := f.gs.Create("Otra", "")
	f.is.Create(other.ID, "departed", "guest")

	list, err := f.is.ListPendingForUser("guest")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("pending = %d, want 2", len(list))
	}
	if list[0].Group.ID != other.ID {
		t.Errorf("first = %s, want newest invitation to %s", list[0].Group.ID, other.ID)
	}
	if list[0].Inviter != nil {
		t.Errorf("inviter = %+v, want nil for unknown inviter", list[0].Inviter)
	}
	if list[1].Inviter == nil || list[1].Inviter.DisplayName != "Juan" {
		t.Errorf("inviter = %+v, want Juan", list[1].Inviter)
	}

	count, _ := f.is.PendingCount("guest")
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestInvitationAccept(t *testing.T) {
	f := setupInvitationTest(t)
	inv, _ := f.is.Create(f.group.ID, "owner", "guest")

	if _, err := f.is.Accept(inv.ID, "owner"); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("accept by wrong user err = %v, want ErrAlreadyResponded", err)
	}

	accepted, err := f.is.Accept(inv.ID, "guest")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != model.InvitationAccepted || accepted.RespondedAt == nil {
		t.Errorf("accepted = %+v", accepted)
	}
	m, _ := f.gs.GetMember(f.group.ID, "guest")
	if m == nil || m.Role != model.RoleMember {
		t.Errorf("member = %+v, want member role", m)
	}

	if _, err := f.is.Accept(inv.ID, "guest"); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("second accept err = %v, want ErrAlreadyResponded", err)
	}
	count, _ := f.is.PendingCount("guest")
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestInvitationDecline(t *testing.T) {
	f := setupInvitationTest(t)
	inv, _ := f.is.Create(f.group.ID, "owner", "guest")

	declined, err := f.is.Decline(inv.ID, "guest")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != model.InvitationDeclined {
		t.Errorf("status = %q, want declined", declined.Status)
	}
	if ok, _ := f.gs.IsMember(f.group.ID, "guest"); ok {
		t.Error("declining must not add membership")
	}
	if _, err := f.is.Decline(inv.ID, "guest"); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("second decline err = %v, want ErrAlreadyResponded", err)
	}

	// A responded invitation frees the slot for a new one.
	if _, err := f.is.Create(f.group.ID, "owner", "guest"); err != nil {
		t.Errorf("re-invite after decline: %v", err)
	}
}

func TestInvitationExpireOlderThan(t *testing.T) {
	f := setupInvitationTest(t)
	old, _ := f.is.Create(f.group.ID, "owner", "guest")
	fresh, _ := f.is.Create(f.group.ID, "owner", "someone-else")

	if _, err := f.is.db.Exec(`UPDATE invitations SET created_at = ? WHERE id = ?`,
		formatTime(time.Now().Add(-20*24*time.Hour)), old.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	users, err := f.is.ExpireOlderThan(time.Now().Add(-14 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(users) != 1 || users[0] != "guest" {
		t.Errorf("users = %v, want [guest]", users)
	}

	got, _ := f.is.GetByID(old.ID)
	if got.Status != model.InvitationExpired {
		t.Errorf("old status = %q, want expired", got.Status)
	}
	got, _ = f.is.GetByID(fresh.ID)
	if got.Status != model.InvitationPending {
		t.Errorf("fresh status = %q, want pending", got.Status)
	}

	users, _ = f.is.ExpireOlderThan(time.Now().Add(-14 * 24 * time.Hour))
	if len(users) != 0 {
		t.Errorf("second run expired %v", users)
	}
}

func TestInvitationPendingUserIDs(t *testing.T) {
	f := setupInvitationTest(t)
	f.is.Create(f.group.ID, "owner", "guest")

	ids, err := f.is.PendingUserIDs(f.group.ID)
	if err != nil {
		t.Fatalf("pending user ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "guest" {
		t.Errorf("ids = %v, want [guest]", ids)
	}
}
