package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/schedkit/internal/profile"
	"github.com/hrygo/schedkit/store"
)

// Set POSTGRES_TEST_DSN to run against a real database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	p := &profile.Profile{Mode: "dev", Driver: "postgres", DSN: dsn}
	driver, err := NewDB(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSchedule_CreateAndListWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	creator := int32(time.Now().UnixNano() % 1_000_000)
	start := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC).Unix()
	end := start + 3600

	created, err := s.CreateSchedule(ctx, &store.Schedule{
		CreatorID: creator,
		Title:     "pg standup",
		StartTs:   start,
		EndTs:     &end,
		Timezone:  "UTC",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeleteSchedule(ctx, &store.DeleteSchedule{ID: created.ID}) })

	from, to := start-60, start+60
	list, err := s.ListSchedules(ctx, &store.FindSchedule{CreatorID: &creator, StartTs: &from, EndTs: &to})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.UID, list[0].UID)

	// Back-to-back window does not match.
	from, to = end, end+3600
	list, err = s.ListSchedules(ctx, &store.FindSchedule{CreatorID: &creator, StartTs: &from, EndTs: &to})
	require.NoError(t, err)
	assert.Empty(t, list)

	// A zero-length row lasts DefaultScheduleDuration.
	zeroStart := end + 7200
	zero, err := s.CreateSchedule(ctx, &store.Schedule{
		CreatorID: creator,
		Title:     "pg zero length",
		StartTs:   zeroStart,
		EndTs:     &zeroStart,
		Timezone:  "UTC",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeleteSchedule(ctx, &store.DeleteSchedule{ID: zero.ID}) })

	from, to = zeroStart+1800, zeroStart+2400
	list, err = s.ListSchedules(ctx, &store.FindSchedule{CreatorID: &creator, StartTs: &from, EndTs: &to})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, zero.UID, list[0].UID)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders(3))
}
