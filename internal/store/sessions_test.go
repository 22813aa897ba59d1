package store

import (
	"context"
	"testing"
	"time"

	"classdrop/internal/models"
)

func TestSessionLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	session := models.Session{Username: "teacher", Role: models.RoleTeacher}
	if err := st.CreateSession(ctx, session, "hash-1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := st.GetSessionByTokenHash(ctx, "hash-1", now)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.Username != "teacher" || got.Role != models.RoleTeacher {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := st.RevokeSessionByTokenHash(ctx, "hash-1", now); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = st.GetSessionByTokenHash(ctx, "hash-1", now)
	if err != nil {
		t.Fatalf("get revoked: %v", err)
	}
	if got != nil {
		t.Fatal("expected revoked session to resolve to nil")
	}
}

func TestSessionExpiry(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	session := models.Session{Username: "amelie", Role: models.RoleStudent}
	if err := st.CreateSession(ctx, session, "hash-2", now.Add(time.Minute), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := st.GetSessionByTokenHash(ctx, "hash-2", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("get expired: %v", err)
	}
	if got != nil {
		t.Fatal("expected expired session to resolve to nil")
	}
}

func TestSessionExpirySubSecondBoundary(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	// Whole-second expiry checked a hair later is gone.
	whole := models.Session{Username: "dorothy", Role: models.RoleTeacher}
	if err := st.CreateSession(ctx, whole, "hash-whole", base, base.Add(-time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := st.GetSessionByTokenHash(ctx, "hash-whole", base.Add(time.Microsecond))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Fatalf("session past its expiry must resolve to nil, got %+v", got)
	}

	// Fractional-second expiry still in the future resolves.
	frac := models.Session{Username: "ralphie", Role: models.RoleStudent}
	if err := st.CreateSession(ctx, frac, "hash-frac", base.Add(500*time.Millisecond), base.Add(-time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err = st.GetSessionByTokenHash(ctx, "hash-frac", base)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.Username != "ralphie" {
		t.Fatalf("unexpired session should resolve, got %+v", got)
	}
}

func TestSessionValidation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := st.CreateSession(ctx, models.Session{Role: models.RoleAdmin}, "h", now, now); err == nil {
		t.Fatal("expected error for missing username")
	}
	if err := st.CreateSession(ctx, models.Session{Username: "x", Role: "principal"}, "h", now, now); err == nil {
		t.Fatal("expected error for invalid role")
	}
	if err := st.CreateSession(ctx, models.Session{Username: "x", Role: models.RoleAdmin}, " ", now, now); err == nil {
		t.Fatal("expected error for empty token hash")
	}

	got, err := st.GetSessionByTokenHash(ctx, "", now)
	if err != nil || got != nil {
		t.Fatalf("empty token hash should resolve to nil, got %+v err=%v", got, err)
	}
}
