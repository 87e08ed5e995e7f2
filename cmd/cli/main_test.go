package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "spellkeeper")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	assert.Equal(t, base, cfgDir())
	assert.Equal(t, filepath.Join(base, "token.json"), tokenPath())
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	_, err := loadToken()
	require.ErrorIs(t, err, errNoToken)

	require.NoError(t, saveToken(tokenFile{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Minute), Username: "alice"}))
	tf, err := loadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok", tf.AccessToken)
	assert.Equal(t, "alice", tf.Username)

	fi, err := os.Stat(tokenPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	require.NoError(t, saveToken(tokenFile{AccessToken: "tok2", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, err = loadToken()
	require.ErrorIs(t, err, errNoToken)

	require.NoError(t, removeToken())
	require.NoError(t, removeToken())
}

// fakeAPI records requests and answers from a route table.
type fakeAPI struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]func(w http.ResponseWriter, r *http.Request)
	seen   []*http.Request
	bodies []map[string]any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Context, *bytes.Buffer) {
	t.Helper()
	f := &fakeAPI{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.seen = append(f.seen, r)
		f.bodies = append(f.bodies, body)
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":true,"message":"not found"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	out := &bytes.Buffer{}
	return f, &Context{Server: srv.URL, Timeout: 5 * time.Second, Out: out}, out
}

func (f *fakeAPI) requests() ([]*http.Request, []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.seen...), append([]map[string]any(nil), f.bodies...)
}

func reply(status int, v any) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestLogin_SavesToken(t *testing.T) {
	_ = withTmpConfig(t)
	f, ctx, out := newFakeAPI(t)
	f.routes["POST /api/auth/login"] = reply(200, authReply{
		Token: "jwt-1", ExpiresAt: time.Now().Add(time.Hour), User: user{Username: "alice"},
	})

	require.NoError(t, (&LoginCmd{Email: "a@x.io", Password: "secret1"}).Run(ctx))
	assert.Contains(t, out.String(), "alice")
	_, bodies := f.requests()
	assert.Equal(t, "a@x.io", bodies[0]["email"])

	tf, err := loadToken()
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", tf.AccessToken)
}

func TestLogin_ErrorMessage(t *testing.T) {
	_ = withTmpConfig(t)
	f, ctx, _ := newFakeAPI(t)
	f.routes["POST /api/auth/login"] = reply(429, map[string]any{"error": true, "message": "rate limited"})

	err := (&LoginCmd{Email: "a@x.io", Password: "x"}).Run(ctx)
	var ae *apiError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 429, ae.Status)
	assert.Equal(t, "rate limited (429)", ae.Error())
}

func TestAuthenticatedCommands_SendBearer(t *testing.T) {
	_ = withTmpConfig(t)
	require.NoError(t, saveToken(tokenFile{AccessToken: "jwt-2", ExpiresAt: time.Now().Add(time.Hour)}))
	f, ctx, out := newFakeAPI(t)
	f.routes["GET /api/spells"] = reply(200, []spell{
		{ID: "s1", Title: "Meditate", RepeatType: "DAILY", XPReward: 10, CompletedThisPeriod: true},
		{ID: "s2", Title: "Review week", RepeatType: "WEEKLY", XPReward: 50},
	})
	f.routes["POST /api/spells/s1/complete"] = reply(200, completion{
		Message: "Spell completed!", XPGained: 10, NewXP: 100, OldLevel: 1, NewLevel: 2, LeveledUp: true, NewStreak: 3,
		UnlockedTalismans: []talisman{{Name: "First Step"}},
	})

	require.NoError(t, (&SpellListCmd{}).Run(ctx))
	require.NoError(t, (&CompleteCmd{ID: "s1"}).Run(ctx))

	seen, _ := f.requests()
	for _, r := range seen {
		assert.Equal(t, "Bearer jwt-2", r.Header.Get("Authorization"))
	}
	s := out.String()
	for _, want := range []string{"Meditate", "Review week", "+10 XP", "Level up! 1 -> 2", "Streak: 3", "First Step"} {
		assert.Contains(t, s, want)
	}
}

func TestSpellAdd_Weekly(t *testing.T) {
	_ = withTmpConfig(t)
	require.NoError(t, saveToken(tokenFile{AccessToken: "jwt", ExpiresAt: time.Now().Add(time.Hour)}))
	f, ctx, _ := newFakeAPI(t)
	f.routes["POST /api/spells"] = reply(201, spell{ID: "s9", Title: "Plan"})

	require.NoError(t, (&SpellAddCmd{Title: "Plan", Weekly: true, XP: 40}).Run(ctx))
	_, bodies := f.requests()
	require.Len(t, bodies, 1)
	assert.Equal(t, "WEEKLY", bodies[0]["repeatType"])
	assert.EqualValues(t, 40, bodies[0]["xpReward"])
}

func TestSpellEdit_OnlySetFields(t *testing.T) {
	_ = withTmpConfig(t)
	require.NoError(t, saveToken(tokenFile{AccessToken: "jwt", ExpiresAt: time.Now().Add(time.Hour)}))
	f, ctx, _ := newFakeAPI(t)
	f.routes["PUT /api/spells/s1"] = reply(200, spell{ID: "s1", Title: "Run"})

	require.Error(t, (&SpellEditCmd{ID: "s1"}).Run(ctx))

	xp := int64(30)
	require.NoError(t, (&SpellEditCmd{ID: "s1", XP: &xp}).Run(ctx))
	_, bodies := f.requests()
	require.Len(t, bodies, 1)
	assert.Equal(t, map[string]any{"xpReward": float64(30)}, bodies[0])
}

func TestCommandsWithoutToken(t *testing.T) {
	_ = withTmpConfig(t)
	_, ctx, _ := newFakeAPI(t)
	require.ErrorIs(t, (&StatsCmd{}).Run(ctx), errNoToken)
}

func TestLeaderboard_Public(t *testing.T) {
	_ = withTmpConfig(t)
	f, ctx, out := newFakeAPI(t)
	f.routes["GET /api/leaderboard"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		reply(200, []rankRow{{Rank: 1, Username: "alice", Level: 3, XP: 250}})(w, r)
	}

	require.NoError(t, (&LeaderboardCmd{Limit: 3}).Run(ctx))
	seen, _ := f.requests()
	assert.Empty(t, seen[0].Header.Get("Authorization"))
	assert.True(t, strings.Contains(out.String(), "alice"))
}
