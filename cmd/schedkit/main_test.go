package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/schedkit/plugin/ai/aitime"
	"github.com/hrygo/schedkit/server/auth"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--data", t.TempDir()))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestTokenCommand(t *testing.T) {
	out := execute(t, "", "token", "--jwt-secret", "cli-secret", "--user", "7")

	userID, err := auth.NewAuthenticator("cli-secret").Authenticate("Bearer " + strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int32(7), userID)
}

func TestParseCommand(t *testing.T) {
	out := execute(t, "", "parse", "明天下午3点开会", "--timezone", "Asia/Shanghai", "--jwt-secret", "")

	var result aitime.ParseResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotNil(t, result.Candidate)
	assert.Equal(t, int64(3600), result.Candidate.DurationSeconds())
}

func TestSuggestCommand(t *testing.T) {
	out := execute(t, "好的。建议创建：明天下午3点 项目评审\n1. 明天 10:00-11:00 周会", "suggest", "--jwt-secret", "")

	var candidates []aitime.ScheduleCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &candidates))
	require.Len(t, candidates, 2)
	assert.Equal(t, "项目评审", candidates[0].Title)
	assert.Equal(t, "周会", candidates[1].Title)
}
