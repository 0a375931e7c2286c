package aitime

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shanghai(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	return loc
}

// Monday 2026-01-26 10:00 in Shanghai.
func referenceTime(loc *time.Location) time.Time {
	return time.Date(2026, 1, 26, 10, 0, 0, 0, loc)
}

func TestParser_ClockExpressions(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)

	tests := []struct {
		name      string
		input     string
		wantStart string
		wantTitle string
	}{
		{"english day and pm", "tomorrow 3pm meeting", "2026-01-27 15:00", "meeting"},
		{"chinese afternoon", "明天下午3点开会", "2026-01-27 15:00", "开会"},
		{"half hour", "下午3点半开会", "2026-01-26 15:30", "开会"},
		{"explicit minutes", "下午3点15分开会", "2026-01-26 15:15", "开会"},
		{"title before at", "Team sync at 10am", "2026-01-26 10:00", "Team sync"},
		{"evening literal 24h", "晚上20点聚餐", "2026-01-26 20:00", "聚餐"},
		{"noon", "中午12点午饭", "2026-01-26 12:00", "午饭"},
		{"noon band", "中午1点午饭", "2026-01-26 13:00", "午饭"},
		{"12pm", "12pm lunch", "2026-01-26 12:00", "lunch"},
		{"explicit date", "2026-01-28 15:00 评审", "2026-01-28 15:00", "评审"},
		{"chinese date", "2026年1月30日 9:00 体检", "2026-01-30 09:00", "体检"},
		{"request filler", "帮我安排明天上午9点开会", "2026-01-27 09:00", "开会"},
		{"full width colon", "明天 14：30 面试", "2026-01-27 14:30", "面试"},
		{"period word in chinese title", "明天9点 下午茶", "2026-01-27 09:00", "下午茶"},
		{"period word in english title", "tomorrow 9:00 review of afternoon plan", "2026-01-27 09:00", "review of afternoon plan"},
		{"period after day keyword", "tomorrow afternoon 3:00 sync", "2026-01-27 15:00", "sync"},
		{"period separated by space", "明天下午 3点开会", "2026-01-27 15:00", "开会"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(loc)
			result := p.Parse(tt.input, ref)

			require.Equal(t, StateSuccess, result.State)
			require.NotNil(t, result.Candidate)
			c := result.Candidate
			assert.Equal(t, tt.wantStart, time.Unix(c.StartTs, 0).In(loc).Format("2006-01-02 15:04"))
			assert.Equal(t, int64(3600), c.DurationSeconds())
			assert.Equal(t, tt.wantTitle, c.Title)
			assert.Equal(t, ConfidenceClock, c.Confidence)
			assert.Equal(t, SourceLocal, c.Source)
			assert.False(t, c.AllDay)
			assert.Empty(t, result.MissingFields)
		})
	}
}

func TestParser_RolloverPolicy(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)

	tests := []struct {
		name   string
		policy RolloverPolicy
		input  string
		want   string
	}{
		{"past clock rolls", RolloverAlways, "9:30 standup", "2026-01-27 09:30"},
		{"yesterday rolls under always", RolloverAlways, "yesterday 3pm call", "2026-01-26 15:00"},
		{"explicit past date rolls under always", RolloverAlways, "2026-01-20 9:00 复盘", "2026-01-21 09:00"},
		{"past clock rolls without day", RolloverUnlessExplicitDay, "9:30 standup", "2026-01-27 09:30"},
		{"yesterday kept", RolloverUnlessExplicitDay, "yesterday 3pm call", "2026-01-25 15:00"},
		{"today keyword kept", RolloverUnlessExplicitDay, "今天上午9点复盘", "2026-01-26 09:00"},
		{"future untouched", RolloverUnlessExplicitDay, "tomorrow 9am call", "2026-01-27 09:00"},
		{"12am rolls to next midnight", RolloverAlways, "12am deploy", "2026-01-27 00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(loc, WithRollover(tt.policy))
			result := p.Parse(tt.input, ref)

			require.Equal(t, StateSuccess, result.State)
			assert.Equal(t, tt.want, time.Unix(result.Candidate.StartTs, 0).In(loc).Format("2006-01-02 15:04"))
		})
	}
}

func TestRollover_Idempotent(t *testing.T) {
	ref := time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{0, time.Second, time.Hour, 30 * time.Hour} {
		future := ref.Add(offset)
		assert.Equal(t, future, Rollover(future, ref))
		assert.Equal(t, Rollover(future, ref), Rollover(Rollover(future, ref), ref))
	}

	past := ref.Add(-time.Minute)
	assert.Equal(t, past.AddDate(0, 0, 1), Rollover(past, ref))
}

func TestParser_RelativeOffsets(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)

	tests := []struct {
		name      string
		input     string
		wantStart time.Time
		wantTitle string
	}{
		{"chinese minutes", "30分钟后", ref.Add(30 * time.Minute), DefaultMessages.PlaceholderTitle},
		{"chinese hours", "2个小时后提醒喝水", ref.Add(2 * time.Hour), "提醒喝水"},
		{"chinese days", "3天后交报告", ref.AddDate(0, 0, 3), "交报告"},
		{"english in", "in 2 hours review", ref.Add(2 * time.Hour), "review"},
		{"english later", "call mom 1 week later", ref.AddDate(0, 0, 7), "call mom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewParser(loc).Parse(tt.input, ref)

			require.Equal(t, StateSuccess, result.State)
			c := result.Candidate
			assert.Equal(t, tt.wantStart.Unix(), c.StartTs)
			assert.Equal(t, tt.wantStart.Add(DefaultDuration).Unix(), c.EndTs)
			assert.Equal(t, ConfidenceRelative, c.Confidence)
			assert.Equal(t, tt.wantTitle, c.Title)
		})
	}
}

func TestParser_AllDay(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)

	tests := []struct {
		input     string
		wantDay   string
		wantTitle string
	}{
		{"明天全天培训", "2026-01-27", "培训"},
		{"tomorrow all day offsite", "2026-01-27", "offsite"},
		{"yesterday all-day retro", "2026-01-25", "retro"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NewParser(loc).Parse(tt.input, ref)

			require.Equal(t, StateSuccess, result.State)
			c := result.Candidate
			start := time.Unix(c.StartTs, 0).In(loc)
			end := time.Unix(c.EndTs, 0).In(loc)
			assert.True(t, c.AllDay)
			assert.Equal(t, tt.wantDay, start.Format("2006-01-02"))
			assert.Equal(t, "00:00", start.Format("15:04"))
			assert.Equal(t, start.AddDate(0, 0, 1), end)
			assert.Equal(t, ConfidenceAllDay, c.Confidence)
			assert.Equal(t, tt.wantTitle, c.Title)
		})
	}
}

func TestParser_TitleOnlyFallback(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)

	tests := []struct {
		name      string
		input     string
		wantTitle string
	}{
		{"morning rejects hour 13", "早上13点开会", "早上13点开会"},
		{"pm rejects hour 13", "13pm dinner", "13pm dinner"},
		{"bare number is not a clock", "买3个苹果", "买3个苹果"},
		{"all day needs a day", "全天培训", "全天培训"},
		{"invalid minute", "下午3:75 开会", "下午3:75 开会"},
		{"evening rejects hour 12", "晚上12点睡觉", "晚上12点睡觉"},
		{"afternoon rejects hour 12", "下午12点开会", "下午12点开会"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewParser(loc).Parse(tt.input, ref)

			require.Equal(t, StatePartial, result.State)
			assert.ElementsMatch(t, []MissingField{FieldStartTime, FieldDuration}, result.MissingFields)
			assert.Equal(t, DefaultMessages.NeedStartTime, result.Message)
			c := result.Candidate
			require.NotNil(t, c)
			assert.Equal(t, tt.wantTitle, c.Title)
			assert.Equal(t, ConfidenceTitleOnly, c.Confidence)
			assert.Equal(t, ref.Unix(), c.StartTs)
			assert.Equal(t, ref.Add(DefaultDuration).Unix(), c.EndTs)
		})
	}
}

func TestParser_ClockRange(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)

	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
		wantTitle string
	}{
		{"chinese range shares period", "明天下午3点到5点开会", "2026-01-27 15:00", "2026-01-27 17:00", "开会"},
		{"hh:mm range", "10:00-11:30 评审", "2026-01-26 10:00", "2026-01-26 11:30", "评审"},
		{"english range", "tomorrow 3pm to 5pm planning", "2026-01-27 15:00", "2026-01-27 17:00", "planning"},
		{"inverted range keeps default duration", "明天下午5点到3点开会", "2026-01-27 17:00", "2026-01-27 18:00", "开会"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewParser(loc).Parse(tt.input, ref)

			require.Equal(t, StateSuccess, result.State)
			c := result.Candidate
			assert.Equal(t, tt.wantStart, time.Unix(c.StartTs, 0).In(loc).Format("2006-01-02 15:04"))
			assert.Equal(t, tt.wantEnd, time.Unix(c.EndTs, 0).In(loc).Format("2006-01-02 15:04"))
			assert.Equal(t, tt.wantTitle, c.Title)
		})
	}
}

func TestParser_IdleResults(t *testing.T) {
	loc := shanghai(t)
	p := NewParser(loc)
	ref := referenceTime(loc)

	assert.Equal(t, StateIdle, p.Parse("", ref).State)
	assert.Equal(t, StateIdle, p.Parse("   \n ", ref).State)

	long := strings.Repeat("很长的一段话", 10)
	result := p.Parse(long, ref)
	assert.Equal(t, StateIdle, result.State)
	assert.Nil(t, result.Candidate)
}

func TestParser_FirstMatchingLineWins(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)

	result := NewParser(loc).Parse("随便聊聊\n明天下午3点开会\n后天上午9点复盘", ref)

	require.Equal(t, StateSuccess, result.State)
	assert.Equal(t, "开会", result.Candidate.Title)
	assert.Equal(t, "2026-01-27 15:00", time.Unix(result.Candidate.StartTs, 0).In(loc).Format("2006-01-02 15:04"))
}

func TestParser_ConfidenceFloor(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)
	p := NewParser(loc)

	inputs := []string{
		"tomorrow 3pm meeting", "30分钟后", "明天全天培训", "早上13点开会",
		"买3个苹果", "in 2 hours review", "yesterday 3pm call", "12am deploy",
	}
	for _, input := range inputs {
		result := p.Parse(input, ref)
		if result.Candidate == nil {
			continue
		}
		if result.Candidate.Confidence >= AcceptThreshold {
			assert.Empty(t, result.Candidate.MissingFields, input)
			assert.Equal(t, StateSuccess, result.State, input)
			assert.Less(t, result.Candidate.StartTs, result.Candidate.EndTs, input)
		}
	}
}

func TestParser_Memoization(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)
	p := NewParser(loc)

	first := p.Parse("tomorrow 3pm meeting", ref)
	require.Equal(t, StateSuccess, first.State)
	assert.Equal(t, 1, p.cache.Len())

	// Mutating a returned result must not leak into the cache.
	first.Candidate.Title = "changed"
	second := p.Parse("tomorrow 3pm meeting", ref)
	assert.Equal(t, "meeting", second.Candidate.Title)

	// A different reference instant is a different key.
	later := p.Parse("tomorrow 3pm meeting", ref.Add(24*time.Hour))
	assert.NotEqual(t, second.Candidate.StartTs, later.Candidate.StartTs)
	assert.Equal(t, 2, p.cache.Len())

	// Keys are per reference second.
	p.Parse("tomorrow 3pm meeting", ref.Add(500*time.Millisecond))
	assert.Equal(t, 2, p.cache.Len())
	p.Parse("tomorrow 3pm meeting", ref.Add(time.Second))
	assert.Equal(t, 3, p.cache.Len())

	// Partial results are not memoized.
	p.Parse("早上13点开会", ref)
	assert.Equal(t, 3, p.cache.Len())

	// Parsers do not share entries.
	other := NewParser(loc)
	assert.Equal(t, 0, other.cache.Len())
}

func TestParser_CacheExpires(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)
	now := ref
	p := NewParser(loc, WithCache(4, time.Minute))
	p.cache.WithClock(func() time.Time { return now })

	p.Parse("tomorrow 3pm meeting", ref)
	assert.Equal(t, 1, p.cache.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, p.SweepCache())
	assert.Equal(t, 0, p.cache.Len())
}

func TestParser_CustomMessages(t *testing.T) {
	loc := shanghai(t)
	ref := referenceTime(loc)
	p := NewParser(loc, WithMessages(Messages{PlaceholderTitle: "New event", NeedStartTime: "When?"}))

	result := p.Parse("in 30 minutes", ref)
	require.Equal(t, StateSuccess, result.State)
	assert.Equal(t, "New event", result.Candidate.Title)

	result = p.Parse("早上13点开会", ref)
	assert.Equal(t, "When?", result.Message)
}

func TestParseRolloverPolicy(t *testing.T) {
	assert.Equal(t, RolloverAlways, ParseRolloverPolicy(""))
	assert.Equal(t, RolloverAlways, ParseRolloverPolicy("always"))
	assert.Equal(t, RolloverUnlessExplicitDay, ParseRolloverPolicy("unless_explicit_day"))
	assert.Equal(t, "unless_explicit_day", RolloverUnlessExplicitDay.String())
}
