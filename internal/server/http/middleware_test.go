package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJWT(t *testing.T, sub string, key []byte, m jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(m, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthRequired_Tokens(t *testing.T) {
	ta := newTestAPI(t, nil)
	valid := ta.register(t, "alice")
	now := time.Now().UTC()
	sub := uuid.Must(uuid.NewV4()).String()

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", valid, http.StatusOK},
		{"expired", makeJWT(t, sub, testKey, jwt.SigningMethodHS256, now.Add(-2*time.Hour), time.Hour), http.StatusUnauthorized},
		{"wrong key", makeJWT(t, sub, []byte("other"), jwt.SigningMethodHS256, now, time.Hour), http.StatusUnauthorized},
		{"wrong alg", makeJWT(t, sub, testKey, jwt.SigningMethodHS384, now, time.Hour), http.StatusUnauthorized},
		{"bad subject", makeJWT(t, "not-a-uuid", testKey, jwt.SigningMethodHS256, now, time.Hour), http.StatusUnauthorized},
		{"nil subject", makeJWT(t, uuid.Nil.String(), testKey, jwt.SigningMethodHS256, now, time.Hour), http.StatusUnauthorized},
		{"garbage", "this-is-not-a-jwt", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := ta.do(t, http.MethodGet, "/api/spells", tc.token, nil)
			assert.Equal(t, tc.want, code, string(body))
		})
	}
}

func TestAuthRequired_UnknownUser(t *testing.T) {
	ta := newTestAPI(t, nil)
	tok := makeJWT(t, uuid.Must(uuid.NewV4()).String(), testKey, jwt.SigningMethodHS256, time.Now(), time.Hour)

	code, _ := ta.do(t, http.MethodGet, "/api/user/stats", tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
