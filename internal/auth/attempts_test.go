// attempts_test.go

// unit tests for the LoginAttemptTracker state machine.
package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MGallo-Code/styx/internal/store"
	"github.com/MGallo-Code/styx/internal/testutil"
	"github.com/gofrs/uuid/v5"
)

func newTracker(ms *testutil.MockStore) *LoginAttemptTracker {
	return &LoginAttemptTracker{
		Store:       ms,
		MaxAttempts: ms.MaxAttempts,
		Window:      10 * time.Minute,
	}
}

func seedActiveUser(ms *testutil.MockStore) *store.User {
	u := &store.User{
		ID:     uuid.Must(uuid.NewV7()),
		Email:  "user@example.com",
		Active: true,
	}
	ms.Users[u.ID] = u
	return u
}

func TestRecordFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("first failure creates history at one", func(t *testing.T) {
		ms := testutil.NewMockStore()
		u := seedActiveUser(ms)
		tr := newTracker(ms)

		now := time.Now()
		if err := tr.RecordFailure(ctx, u.ID, now); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}

		h := ms.Histories[u.ID]
		if h == nil {
			t.Fatal("expected history row created")
		}
		if h.NumberOfAttempts != 1 {
			t.Errorf("attempts: expected 1, got %d", h.NumberOfAttempts)
		}
		if !h.AttemptedAt.Equal(now) {
			t.Errorf("window start: expected %v, got %v", now, h.AttemptedAt)
		}
		if !u.Active {
			t.Error("single failure must not lock the account")
		}
	})

	t.Run("failures within window increment", func(t *testing.T) {
		ms := testutil.NewMockStore()
		u := seedActiveUser(ms)
		tr := newTracker(ms)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := tr.RecordFailure(ctx, u.ID, start.Add(time.Duration(i)*time.Minute)); err != nil {
				t.Fatalf("failure %d: %v", i+1, err)
			}
		}

		if got := ms.Histories[u.ID].NumberOfAttempts; got != 3 {
			t.Errorf("attempts: expected 3, got %d", got)
		}
		if !ms.Histories[u.ID].AttemptedAt.Equal(start) {
			t.Error("window start must not move on increments")
		}
	})

	t.Run("max attempts within window tolerated", func(t *testing.T) {
		ms := testutil.NewMockStore()
		u := seedActiveUser(ms)
		tr := newTracker(ms)

		start := time.Now()
		for i := 0; i < tr.MaxAttempts; i++ {
			if err := tr.RecordFailure(ctx, u.ID, start.Add(time.Duration(i)*time.Second)); err != nil {
				t.Fatalf("failure %d: %v", i+1, err)
			}
		}

		if !u.Active {
			t.Errorf("account must stay active at exactly %d failures", tr.MaxAttempts)
		}
	})

	t.Run("one over max locks the account", func(t *testing.T) {
		ms := testutil.NewMockStore()
		u := seedActiveUser(ms)
		tr := newTracker(ms)

		start := time.Now()
		for i := 0; i <= tr.MaxAttempts; i++ {
			if err := tr.RecordFailure(ctx, u.ID, start.Add(time.Duration(i)*time.Second)); err != nil {
				t.Fatalf("failure %d: %v", i+1, err)
			}
		}

		if u.Active {
			t.Errorf("account must lock on failure %d", tr.MaxAttempts+1)
		}
		// Locking is one-directional: another failure keeps it locked.
		if err := tr.RecordFailure(ctx, u.ID, start.Add(time.Minute)); err != nil {
			t.Fatalf("post-lock failure: %v", err)
		}
		if u.Active {
			t.Error("account must stay locked")
		}
	})

	t.Run("failure after window resets to one and never locks", func(t *testing.T) {
		ms := testutil.NewMockStore()
		u := seedActiveUser(ms)
		tr := newTracker(ms)

		start := time.Now()
		for i := 0; i < tr.MaxAttempts; i++ {
			if err := tr.RecordFailure(ctx, u.ID, start.Add(time.Duration(i)*time.Second)); err != nil {
				t.Fatalf("failure %d: %v", i+1, err)
			}
		}

		// One tick past the window: would have locked if counted, resets instead.
		late := start.Add(tr.Window + time.Second)
		if err := tr.RecordFailure(ctx, u.ID, late); err != nil {
			t.Fatalf("stale-window failure: %v", err)
		}

		h := ms.Histories[u.ID]
		if h.NumberOfAttempts != 1 {
			t.Errorf("attempts after reset: expected 1, got %d", h.NumberOfAttempts)
		}
		if !h.AttemptedAt.Equal(late) {
			t.Errorf("window start after reset: expected %v, got %v", late, h.AttemptedAt)
		}
		if !u.Active {
			t.Error("stale-window failure must never lock")
		}
	})

	t.Run("store errors propagate", func(t *testing.T) {
		boom := errors.New("boom")
		ms := testutil.NewMockStore()
		u := seedActiveUser(ms)
		tr := newTracker(ms)

		ms.GetHistoryErr = boom
		if err := tr.RecordFailure(ctx, u.ID, time.Now()); !errors.Is(err, boom) {
			t.Errorf("get history error should propagate, got %v", err)
		}
		ms.GetHistoryErr = nil

		ms.CreateHistoryErr = boom
		if err := tr.RecordFailure(ctx, u.ID, time.Now()); !errors.Is(err, boom) {
			t.Errorf("create history error should propagate, got %v", err)
		}
		ms.CreateHistoryErr = nil

		if err := tr.RecordFailure(ctx, u.ID, time.Now()); err != nil {
			t.Fatalf("seeding history: %v", err)
		}
		ms.IncrementErr = boom
		if err := tr.RecordFailure(ctx, u.ID, time.Now()); !errors.Is(err, boom) {
			t.Errorf("increment error should propagate, got %v", err)
		}
	})
}
