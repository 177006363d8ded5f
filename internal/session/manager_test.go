package session

import (
	"testing"
	"time"

	"github.com/claritel/admin-console/types"
)

func testUser() types.User {
	return types.User{ID: "u-1", FullName: "Ada Admin", Email: "ada@example.com", Role: types.RoleSuperAdmin}
}

func TestEstablishAndGet(t *testing.T) {
	m := NewManager(time.Hour, 5*time.Minute)

	created := m.Establish(testUser(), "token-123")
	if created.ID == "" {
		t.Fatal("expected a session ID")
	}

	got, ok := m.Get(created.ID)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if got.Token != "token-123" {
		t.Fatalf("expected token token-123, got %q", got.Token)
	}
	if got.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", got.User)
	}
}

func TestGetUnknownSession(t *testing.T) {
	m := NewManager(time.Hour, 5*time.Minute)
	if _, ok := m.Get("nope"); ok {
		t.Fatal("expected unknown session to be absent")
	}
}

func TestClearDestroysSession(t *testing.T) {
	m := NewManager(time.Hour, 5*time.Minute)

	s := m.Establish(testUser(), "token-123")
	m.Clear(s.ID)

	if _, ok := m.Get(s.ID); ok {
		t.Fatal("expected cleared session to be absent")
	}

	m.Clear("never-existed") // must not panic
}

func TestExpiredSessionReadsAsAbsent(t *testing.T) {
	m := NewManager(time.Hour, 5*time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	s := m.Establish(testUser(), "token-123")

	m.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, ok := m.Get(s.ID); ok {
		t.Fatal("expected expired session to be absent")
	}
}

func TestSetUserUpdatesInPlace(t *testing.T) {
	m := NewManager(time.Hour, 5*time.Minute)

	s := m.Establish(testUser(), "token-123")

	updated := testUser()
	updated.MFAEnabled = true
	if !m.SetUser(s.ID, updated) {
		t.Fatal("expected SetUser to find the session")
	}

	got, _ := m.Get(s.ID)
	if !got.User.MFAEnabled {
		t.Fatal("expected MFAEnabled to be true after update")
	}
	if got.Token != "token-123" {
		t.Fatal("expected token to be untouched by SetUser")
	}

	if m.SetUser("missing", updated) {
		t.Fatal("expected SetUser false for unknown session")
	}
}

func TestChallengeLifecycle(t *testing.T) {
	m := NewManager(time.Hour, 5*time.Minute)

	c := m.BeginChallenge("temp-token", "ada@example.com")

	got, ok := m.Challenge(c.ID)
	if !ok {
		t.Fatal("expected pending challenge to exist")
	}
	if got.TempToken != "temp-token" {
		t.Fatalf("expected temp token to round-trip, got %q", got.TempToken)
	}

	// A failed code entry keeps the challenge pending.
	if _, ok := m.Challenge(c.ID); !ok {
		t.Fatal("expected challenge to survive repeated reads")
	}

	m.ResolveChallenge(c.ID)
	if _, ok := m.Challenge(c.ID); ok {
		t.Fatal("expected resolved challenge to be absent")
	}
}

func TestExpiredChallengeReadsAsAbsent(t *testing.T) {
	m := NewManager(time.Hour, 5*time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	c := m.BeginChallenge("temp-token", "ada@example.com")

	m.now = func() time.Time { return now.Add(10 * time.Minute) }
	if _, ok := m.Challenge(c.ID); ok {
		t.Fatal("expected expired challenge to be absent")
	}
}
