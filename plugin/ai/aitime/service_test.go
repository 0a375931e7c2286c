package aitime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, time.Time) {
	t.Helper()
	loc := shanghai(t)
	now := referenceTime(loc)
	return NewService("Asia/Shanghai").WithNow(func() time.Time { return now }), now
}

func TestService_Normalize(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"chinese tomorrow afternoon", "明天下午3点", "2026-01-27 15:00"},
		{"half hour", "下午3点半", "2026-01-26 15:30"},
		{"english", "tomorrow 9am", "2026-01-27 09:00"},
		{"date and clock", "2026-01-28 15:30", "2026-01-28 15:30"},
		{"relative", "2小时后", "2026-01-26 12:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Normalize(ctx, tt.input, "Asia/Shanghai")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02 15:04"))
		})
	}

	_, err := svc.Normalize(ctx, "随便聊聊", "Asia/Shanghai")
	assert.Error(t, err)
}

func TestService_ParseNaturalTime(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	ref := referenceTime(loc)
	svc := NewService("Asia/Shanghai")

	tests := []struct {
		input     string
		wantStart string
		wantEnd   string
	}{
		{"明天", "2026-01-27 00:00", "2026-01-28 00:00"},
		{"today", "2026-01-26 00:00", "2026-01-27 00:00"},
		{"下周", "2026-02-02 00:00", "2026-02-09 00:00"},
		{"this week", "2026-01-26 00:00", "2026-02-02 00:00"},
		{"上个月", "2025-12-01 00:00", "2026-01-01 00:00"},
		{"明天下午3点", "2026-01-27 15:00", "2026-01-27 16:00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tr, err := svc.ParseNaturalTime(ctx, tt.input, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, tr.Start.Format("2006-01-02 15:04"))
			assert.Equal(t, tt.wantEnd, tr.End.Format("2006-01-02 15:04"))
		})
	}

	_, err := svc.ParseNaturalTime(ctx, "买3个苹果", ref)
	assert.Error(t, err)
}

func TestService_ParserFor(t *testing.T) {
	svc, _ := newTestService(t)

	a := svc.ParserFor("Asia/Shanghai")
	b := svc.ParserFor("Asia/Shanghai")
	assert.Same(t, a, b)

	assert.Same(t, a, svc.ParserFor(""), "empty name resolves to the default timezone")
	assert.Same(t, a, svc.ParserFor("Not/AZone"))

	utc := svc.ParserFor("UTC")
	assert.NotSame(t, a, utc)
	assert.Equal(t, "UTC", utc.Timezone().String())
}

func TestService_SweepCaches(t *testing.T) {
	svc, _ := newTestService(t)

	res := svc.ParserFor("").ParseNow("明天下午3点开会")
	require.Equal(t, StateSuccess, res.State)
	assert.Equal(t, 0, svc.SweepCaches(), "fresh entries survive a sweep")
}
