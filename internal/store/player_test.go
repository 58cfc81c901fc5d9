package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/juanlo017/cerves-app/internal/database"
	"github.com/juanlo017/cerves-app/internal/model"
)

const (
	canaID  = "6f1c2a52-0d6e-4c55-9a0e-1b2f3c4d5e01"
	jarraID = "6f1c2a52-0d6e-4c55-9a0e-1b2f3c4d5e03"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestPlayer(t *testing.T, ps *PlayerStore, userID, name string) *model.Player {
	t.Helper()
	p, err := ps.Create(userID, name, "", "hash-"+userID)
	if err != nil {
		t.Fatalf("create player %s: %v", name, err)
	}
	return p
}

func TestPlayerCreate(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))

	p, err := ps.Create("device-1", "Juan", "", "hash")
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	if p.ID == "" {
		t.Error("expected non-empty ID")
	}
	if p.DisplayName != "Juan" {
		t.Errorf("display_name = %q, want %q", p.DisplayName, "Juan")
	}
	if p.AvatarKey != "🍺" {
		t.Errorf("avatar_key = %q, want default", p.AvatarKey)
	}
}

func TestPlayerCreateDuplicateUserID(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	createTestPlayer(t, ps, "device-1", "Juan")

	_, err := ps.Create("device-1", "Otro", "", "hash")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestPlayerGetByUserID(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	created := createTestPlayer(t, ps, "device-1", "Juan")

	p, err := ps.GetByUserID("device-1")
	if err != nil {
		t.Fatalf("get by user id: %v", err)
	}
	if p == nil || p.ID != created.ID {
		t.Fatalf("got %+v, want player %s", p, created.ID)
	}

	missing, err := ps.GetByUserID("nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing player, got %+v", missing)
	}
}

func TestPlayerSecretHash(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	p := createTestPlayer(t, ps, "device-1", "Juan")

	hash, err := ps.SecretHash("device-1")
	if err != nil {
		t.Fatalf("secret hash: %v", err)
	}
	if hash != "hash-device-1" {
		t.Errorf("hash = %q, want %q", hash, "hash-device-1")
	}

	if err := ps.SetSecretHash(p.ID, "rotated"); err != nil {
		t.Fatalf("set secret hash: %v", err)
	}
	hash, _ = ps.SecretHash("device-1")
	if hash != "rotated" {
		t.Errorf("hash = %q, want %q", hash, "rotated")
	}

	if _, err := ps.SecretHash("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPlayerUpdatePartial(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	p := createTestPlayer(t, ps, "device-1", "Juan")

	avatar := "🍷"
	updated, err := ps.Update(p.ID, nil, &avatar)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName != "Juan" {
		t.Errorf("display_name = %q, want unchanged", updated.DisplayName)
	}
	if updated.AvatarKey != "🍷" {
		t.Errorf("avatar_key = %q, want %q", updated.AvatarKey, "🍷")
	}

	missing, err := ps.Update("nope", &avatar, nil)
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing player")
	}
}

func TestPlayerDelete(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	p := createTestPlayer(t, ps, "device-1", "Juan")

	if err := ps.Delete(p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := ps.GetByID(p.ID)
	if got != nil {
		t.Error("expected player to be deleted")
	}
}

func TestPlayerSearch(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	createTestPlayer(t, ps, "u1", "Juanlo")
	createTestPlayer(t, ps, "u2", "JUANA")
	createTestPlayer(t, ps, "u3", "Pedro")

	got, err := ps.Search("juan", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	got, err = ps.Search("juan", []string{"u2"})
	if err != nil {
		t.Fatalf("search excluding: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "u1" {
		t.Errorf("got %+v, want only u1", got)
	}

	got, _ = ps.Search("   ", nil)
	if len(got) != 0 {
		t.Errorf("blank query returned %d players", len(got))
	}
}

func TestPlayerSearchNonASCIICase(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	alvaro := createTestPlayer(t, ps, "u1", "Álvaro")
	createTestPlayer(t, ps, "u2", "ÑOÑO")
	createTestPlayer(t, ps, "u3", "Alvarito")

	for _, tc := range []struct {
		query string
		want  string
	}{
		{"álvaro", "u1"},
		{"ÁLVARO", "u1"},
		{"ñoño", "u2"},
		{"Ñoñ", "u2"},
	} {
		got, err := ps.Search(tc.query, nil)
		if err != nil {
			t.Fatalf("search %q: %v", tc.query, err)
		}
		if len(got) != 1 || got[0].UserID != tc.want {
			t.Errorf("Search(%q) = %+v, want only %s", tc.query, got, tc.want)
		}
	}

	name := "Óscar"
	if _, err := ps.Update(alvaro.ID, &name, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := ps.Search("óscar", nil); len(got) != 1 || got[0].UserID != "u1" {
		t.Errorf("renamed player not found: %+v", got)
	}
	if got, _ := ps.Search("álvaro", nil); len(got) != 0 {
		t.Errorf("old name still matches: %+v", got)
	}
}

func TestPlayerRefreshNameKeys(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPlayerStore(db)
	createTestPlayer(t, ps, "u1", "Álvaro")
	createTestPlayer(t, ps, "u2", "Pedro")

	// rows written before the key column existed carry an ASCII-only key
	if _, err := db.Exec(`UPDATE players SET display_name_key = lower(display_name)`); err != nil {
		t.Fatalf("reset keys: %v", err)
	}
	if got, _ := ps.Search("álvaro", nil); len(got) != 0 {
		t.Fatalf("stale key matched: %+v", got)
	}

	n, err := ps.RefreshNameKeys()
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n != 1 {
		t.Errorf("refreshed %d keys, want 1", n)
	}
	if got, _ := ps.Search("álvaro", nil); len(got) != 1 {
		t.Errorf("after refresh got %+v", got)
	}
	if n, _ := ps.RefreshNameKeys(); n != 0 {
		t.Errorf("second refresh changed %d keys, want 0", n)
	}
}

func TestPlayerSearchLimit(t *testing.T) {
	ps := NewPlayerStore(setupTestDB(t))
	for i := 0; i < 12; i++ {
		createTestPlayer(t, ps, string(rune('a'+i)), "Bebedor "+string(rune('a'+i)))
	}

	got, err := ps.Search("bebedor", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != searchLimit {
		t.Errorf("len = %d, want %d", len(got), searchLimit)
	}
}

func TestPlayerListGroups(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPlayerStore(db)
	gs := NewGroupStore(db)
	p := createTestPlayer(t, ps, "device-1", "Juan")

	g, err := gs.CreateOwned("Peña", "", "device-1")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	memberships, err := ps.ListGroups(p.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(memberships) != 1 {
		t.Fatalf("len = %d, want 1", len(memberships))
	}
	if memberships[0].Group.ID != g.ID || memberships[0].Role != model.RoleAdmin {
		t.Errorf("membership = %+v, want admin of %s", memberships[0], g.ID)
	}
}
