package tokens_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-tenant-admin/client/tokens"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var signingKey = []byte("tokens-test-key")

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	require.NoError(t, err)
	return token
}

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	return makeToken(t, jwt.MapClaims{
		"sub":  "user-1",
		"role": "SUPER_USER",
		"iat":  now.Add(-time.Minute).Unix(),
		"exp":  now.Add(d).Unix(),
	})
}

func newInspector() *tokens.Inspector {
	return tokens.NewInspector(func() time.Time { return now })
}

func TestDecode(t *testing.T) {
	inspector := newInspector()
	valid := makeToken(t, jwt.MapClaims{
		"sub":      "user-1",
		"email":    "admin@test.com",
		"role":     "TENANT_ADMIN",
		"tenantId": "tenant-1",
		"iat":      now.Unix(),
		"exp":      now.Add(time.Hour).Unix(),
	})

	p, ok := inspector.Decode(valid)
	require.True(t, ok)
	require.Equal(t, "user-1", p.Subject)
	require.Equal(t, "admin@test.com", p.Email)
	require.Equal(t, "TENANT_ADMIN", p.Role)
	require.Equal(t, "tenant-1", *p.TenantID)
	require.True(t, p.ExpiresAt.Time.Equal(now.Add(time.Hour)))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "one segment", token: "abc"},
		{name: "two segments", token: "abc.def"},
		{name: "four segments", token: valid + ".extra"},
		{name: "bad base64", token: "a.!!!.c"},
		{name: "not json", token: "a." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".c"},
		{name: "invalid token literal", token: "invalid-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := inspector.Decode(tt.token)
			require.False(t, ok)
			require.Nil(t, p)
		})
	}
}

func TestIsExpired(t *testing.T) {
	inspector := newInspector()

	require.False(t, inspector.IsExpired(tokenExpiringIn(t, time.Minute)))
	require.True(t, inspector.IsExpired(tokenExpiringIn(t, -time.Minute)))
	require.True(t, inspector.IsExpired(tokenExpiringIn(t, 0)), "expiry instant counts as expired")
	require.True(t, inspector.IsExpired("garbage"))
	require.True(t, inspector.IsExpired(makeToken(t, jwt.MapClaims{"sub": "user-1"})), "missing exp fails closed")
}

func TestExpirationTimeAndTimeRemaining(t *testing.T) {
	inspector := newInspector()

	exp, ok := inspector.ExpirationTime(tokenExpiringIn(t, 10*time.Minute))
	require.True(t, ok)
	require.True(t, exp.Equal(now.Add(10*time.Minute)))

	remaining, ok := inspector.TimeRemaining(tokenExpiringIn(t, 10*time.Minute))
	require.True(t, ok)
	require.Equal(t, 10*time.Minute, remaining)

	remaining, ok = inspector.TimeRemaining(tokenExpiringIn(t, -10*time.Minute))
	require.True(t, ok)
	require.Zero(t, remaining)

	_, ok = inspector.ExpirationTime("a.b")
	require.False(t, ok)
	_, ok = inspector.TimeRemaining(makeToken(t, jwt.MapClaims{"sub": "user-1"}))
	require.False(t, ok)
}

func TestShouldRefresh(t *testing.T) {
	inspector := newInspector()
	threshold := 5 * time.Minute

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "well before threshold", token: tokenExpiringIn(t, time.Hour), want: false},
		{name: "exactly at threshold", token: tokenExpiringIn(t, threshold), want: true},
		{name: "inside threshold", token: tokenExpiringIn(t, time.Minute), want: true},
		{name: "already expired", token: tokenExpiringIn(t, -time.Minute), want: true},
		{name: "undecodable", token: "not-a-token", want: true},
		{name: "no exp", token: makeToken(t, jwt.MapClaims{"sub": "user-1"}), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, inspector.ShouldRefresh(tt.token, threshold))
		})
	}
}
