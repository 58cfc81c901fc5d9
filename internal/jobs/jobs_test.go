package jobs

import (
	"context"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/juanlo017/cerves-app/internal/backup"
	"github.com/juanlo017/cerves-app/internal/database"
	"github.com/juanlo017/cerves-app/internal/middleware"
	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
	"github.com/juanlo017/cerves-app/internal/websocket"
)

func TestRegisterSkipsMissingDeps(t *testing.T) {
	r, err := New(Deps{
		Invitations: &store.InvitationStore{},
		Limiter:     middleware.NewRateLimiter(),
		Backups:     backup.NewManager(backup.Config{}, nil, nil, slog.Default()),
	}, slog.Default())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Shutdown()

	if err := r.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	names := r.JobNames()
	slices.Sort(names)
	want := []string{"expire-invitations", "limiter-cleanup"}
	if !slices.Equal(names, want) {
		t.Errorf("jobs = %v, want %v", names, want)
	}
}

func TestExpireInvitations(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	defer db.Close()

	players := store.NewPlayerStore(db)
	groups := store.NewGroupStore(db)
	invitations := store.NewInvitationStore(db)

	owner, _ := players.Create("u-owner", "Ana", "", "h")
	guest, _ := players.Create("u-guest", "Bea", "", "h")
	g, err := groups.CreateOwned("Peña", "", owner.UserID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	inv, err := invitations.Create(g.ID, owner.UserID, guest.UserID)
	if err != nil {
		t.Fatalf("create invitation: %v", err)
	}

	r, err := New(Deps{
		Invitations:   invitations,
		InvitationTTL: 14 * 24 * time.Hour,
		Hub:           websocket.NewHub(slog.Default()),
	}, slog.Default())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Shutdown()

	// still fresh
	r.ExpireInvitations(context.Background())
	if n, _ := invitations.PendingCount(guest.UserID); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}

	r.now = func() time.Time { return time.Now().Add(15 * 24 * time.Hour) }
	r.ExpireInvitations(context.Background())

	if n, _ := invitations.PendingCount(guest.UserID); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	got, _ := invitations.GetByID(inv.ID)
	if got.Status != model.InvitationExpired {
		t.Errorf("status = %q, want expired", got.Status)
	}
}

func TestCleanupLimiter(t *testing.T) {
	rl := middleware.NewRateLimiter()
	rl.Allow("1.2.3.4", 5, time.Nanosecond)
	time.Sleep(time.Millisecond)

	r, err := New(Deps{Limiter: rl}, slog.Default())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Shutdown()

	r.CleanupLimiter(context.Background())
	if n := rl.Cleanup(); n != 0 {
		t.Errorf("entries left after cleanup = %d, want 0", n)
	}
}
