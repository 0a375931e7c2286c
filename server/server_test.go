package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/schedkit/internal/profile"
	"github.com/hrygo/schedkit/store"
	"github.com/hrygo/schedkit/store/db/sqlite"
)

func TestNewServer(t *testing.T) {
	p := &profile.Profile{
		Mode:     "dev",
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "server.db"),
		Timezone: "Asia/Shanghai",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	s, err := NewServer(context.Background(), p, st)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewServer_BadFilter(t *testing.T) {
	p := &profile.Profile{Timezone: "UTC", SlotFilter: "reason +"}
	_, err := NewServer(context.Background(), p, nil)
	assert.Error(t, err)
}
