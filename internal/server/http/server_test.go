package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/spell-keeper/internal/leaderboard"
	"github.com/and161185/spell-keeper/internal/limiter"
	"github.com/and161185/spell-keeper/internal/repository/memory"
	"github.com/and161185/spell-keeper/internal/service"
	"github.com/and161185/spell-keeper/internal/talisman"
)

var testKey = []byte("test-signing-key")

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testAPI struct {
	app *fiber.App
	now time.Time
}

func newTestAPI(t *testing.T, db Pinger) *testAPI {
	t.Helper()
	catalog, err := talisman.DefaultCatalog()
	require.NoError(t, err)
	engine, err := talisman.NewEngine(catalog)
	require.NoError(t, err)

	st := memory.New()
	require.NoError(t, st.Talismans().Seed(context.Background(), catalog))

	log := zaptest.NewLogger(t)
	lim := limiter.NewMemory(limiter.Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})

	ta := &testAPI{now: time.Now().UTC()}
	ta.app = New(Deps{
		Auth:      service.NewAuthService(st.Users(), testKey, time.Hour, lim),
		Spells:    service.NewSpellService(st.Spells(), time.UTC),
		Completer: service.NewCompletionService(st.Progress(), engine, time.UTC, log),
		Stats:     service.NewStatsService(st.Users(), st.Talismans(), leaderboard.NewRanker(st.Leaderboard())),
		DB:        db,
		Log:       log,
		JWTKey:    testKey,
		Now:       func() time.Time { return ta.now },
	})
	return ta
}

func (ta *testAPI) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (ta *testAPI) register(t *testing.T, name string) string {
	t.Helper()
	code, body := ta.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: name, Email: name + "@example.com", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	var ar authResponse
	require.NoError(t, json.Unmarshal(body, &ar))
	require.NotEmpty(t, ar.Token)
	require.Equal(t, name, ar.User.Username)
	return ar.Token
}

func (ta *testAPI) createSpell(t *testing.T, token string, req map[string]any) spellDTO {
	t.Helper()
	code, body := ta.do(t, http.MethodPost, "/api/spells", token, req)
	require.Equal(t, http.StatusCreated, code, string(body))
	var sp spellDTO
	require.NoError(t, json.Unmarshal(body, &sp))
	return sp
}

func decodeErr(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	require.True(t, e.Error)
	return e
}

func TestHealth(t *testing.T) {
	code, _ := newTestAPI(t, pinger{}).do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, body := newTestAPI(t, pinger{err: errors.New("down")}).do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	decodeErr(t, body)
}

func TestAuth_RegisterLogin(t *testing.T) {
	ta := newTestAPI(t, nil)
	ta.register(t, "alice")

	code, body := ta.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "alice2", Email: "alice@example.com", Password: "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)
	decodeErr(t, body)

	code, body = ta.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "bob", Email: "not-an-email", Password: "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, code, string(body))

	code, body = ta.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "Alice@Example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, code, string(body))
	var ar authResponse
	require.NoError(t, json.Unmarshal(body, &ar))
	assert.NotEmpty(t, ar.Token)
}

func TestAuth_LoginRateLimited(t *testing.T) {
	ta := newTestAPI(t, nil)
	ta.register(t, "alice")

	bad := loginRequest{Email: "alice@example.com", Password: "wrong-pass"}
	code, _ := ta.do(t, http.MethodPost, "/api/auth/login", "", bad)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = ta.do(t, http.MethodPost, "/api/auth/login", "", bad)
	assert.Equal(t, http.StatusTooManyRequests, code)

	// still locked even with the right password
	code, _ = ta.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "alice@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ta := newTestAPI(t, nil)
	for _, path := range []string{"/api/user/stats", "/api/user/profile", "/api/user/talismans", "/api/spells"} {
		code, body := ta.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		decodeErr(t, body)

		code, _ = ta.do(t, http.MethodGet, path, "garbage.token.value", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
}

func TestSpellCRUD(t *testing.T) {
	ta := newTestAPI(t, nil)
	tok := ta.register(t, "alice")

	sp := ta.createSpell(t, tok, map[string]any{"title": "  Meditate  "})
	assert.Equal(t, "Meditate", sp.Title)
	assert.Equal(t, "DAILY", sp.RepeatType)
	assert.EqualValues(t, 10, sp.XPReward)

	code, body := ta.do(t, http.MethodPost, "/api/spells", tok, map[string]any{"title": "x", "xpReward": 1001})
	assert.Equal(t, http.StatusBadRequest, code, string(body))
	code, _ = ta.do(t, http.MethodPost, "/api/spells", tok, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ta.do(t, http.MethodPost, "/api/spells", tok, map[string]any{"title": "x", "repeatType": "MONTHLY"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ta.do(t, http.MethodPut, "/api/spells/"+sp.ID, tok, map[string]any{"xpReward": 25, "repeatType": "WEEKLY"})
	require.Equal(t, http.StatusOK, code, string(body))
	var upd spellDTO
	require.NoError(t, json.Unmarshal(body, &upd))
	assert.EqualValues(t, 25, upd.XPReward)
	assert.Equal(t, "WEEKLY", upd.RepeatType)
	assert.Equal(t, "Meditate", upd.Title)

	code, body = ta.do(t, http.MethodGet, "/api/spells", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var list []spellDTO
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	code, body = ta.do(t, http.MethodDelete, "/api/spells/"+sp.ID, tok, nil)
	require.Equal(t, http.StatusOK, code)
	var msg messageResponse
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "Spell deleted", msg.Message)

	code, _ = ta.do(t, http.MethodGet, "/api/spells/"+sp.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = ta.do(t, http.MethodGet, "/api/spells/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSpellsAreOwnerScoped(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")
	bob := ta.register(t, "bob")
	sp := ta.createSpell(t, alice, map[string]any{"title": "Read"})

	code, _ := ta.do(t, http.MethodGet, "/api/spells/"+sp.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = ta.do(t, http.MethodPost, "/api/spells/"+sp.ID+"/complete", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = ta.do(t, http.MethodDelete, "/api/spells/"+sp.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCompleteSpell(t *testing.T) {
	ta := newTestAPI(t, nil)
	tok := ta.register(t, "alice")
	sp := ta.createSpell(t, tok, map[string]any{"title": "Run", "xpReward": 100})

	code, body := ta.do(t, http.MethodPost, "/api/spells/"+sp.ID+"/complete", tok, nil)
	require.Equal(t, http.StatusOK, code, string(body))
	var res completeResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "Spell completed!", res.Message)
	assert.EqualValues(t, 100, res.XPGained)
	assert.EqualValues(t, 100, res.NewXP)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.NewStreak)
	require.Len(t, res.UnlockedTalismans, 1)
	assert.Equal(t, "First Step", res.UnlockedTalismans[0].Name)

	code, body = ta.do(t, http.MethodPost, "/api/spells/"+sp.ID+"/complete", tok, nil)
	assert.Equal(t, http.StatusConflict, code)
	decodeErr(t, body)

	code, body = ta.do(t, http.MethodGet, "/api/spells/"+sp.ID, tok, nil)
	require.Equal(t, http.StatusOK, code)
	var got spellDTO
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.CompletedThisPeriod)

	// next day the same spell is available again and the streak grows
	ta.now = ta.now.Add(24 * time.Hour)
	code, body = ta.do(t, http.MethodPost, "/api/spells/"+sp.ID+"/complete", tok, nil)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 2, res.NewStreak)
	assert.Empty(t, res.UnlockedTalismans)

	code, body = ta.do(t, http.MethodGet, "/api/user/stats", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var st statsResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.EqualValues(t, 200, st.XP)
	assert.EqualValues(t, 2, st.TotalSpellsCompleted)
	assert.Equal(t, 2, st.CurrentStreak)
	assert.Equal(t, 2, st.MaxStreak)
	assert.Equal(t, 1, st.UnlockedTalismans)

	code, body = ta.do(t, http.MethodGet, "/api/user/talismans", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var owned []talismanDTO
	require.NoError(t, json.Unmarshal(body, &owned))
	require.Len(t, owned, 1)
	assert.NotNil(t, owned[0].UnlockedAt)

	code, body = ta.do(t, http.MethodGet, "/api/user/profile", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var prof profileResponse
	require.NoError(t, json.Unmarshal(body, &prof))
	assert.Equal(t, "alice", prof.Username)
	assert.NotNil(t, prof.LastCompletionDate)
	assert.Equal(t, ta.now.Format(time.DateOnly), *prof.LastCompletionDate)
}

func TestCatalogAndLeaderboard(t *testing.T) {
	ta := newTestAPI(t, nil)

	code, body := ta.do(t, http.MethodGet, "/api/talismans", "", nil)
	require.Equal(t, http.StatusOK, code)
	var cat []talismanDTO
	require.NoError(t, json.Unmarshal(body, &cat))
	assert.NotEmpty(t, cat)
	for _, tl := range cat {
		assert.Nil(t, tl.UnlockedAt)
		assert.NotEmpty(t, tl.Condition)
	}

	alice := ta.register(t, "alice")
	ta.register(t, "bob")
	sp := ta.createSpell(t, alice, map[string]any{"title": "Run", "xpReward": 50})
	code, _ = ta.do(t, http.MethodPost, "/api/spells/"+sp.ID+"/complete", alice, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = ta.do(t, http.MethodGet, "/api/leaderboard?limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	var lb []leaderboardDTO
	require.NoError(t, json.Unmarshal(body, &lb))
	require.Len(t, lb, 2)
	assert.Equal(t, leaderboardDTO{Rank: 1, Username: "alice", Level: 1, XP: 50}, lb[0])
	assert.Equal(t, 2, lb[1].Rank)

	code, _ = ta.do(t, http.MethodGet, "/api/leaderboard?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ta.do(t, http.MethodGet, "/api/leaderboard?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRateLimitMiddleware(t *testing.T) {
	app := New(Deps{DB: pinger{}, RateLimit: 2, JWTKey: testKey})
	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	app := New(Deps{DB: pinger{}, JWTKey: testKey})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}
