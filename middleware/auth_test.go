package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthenticator() *Authenticator {
	return NewAuthenticator(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func memberEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, ok := MemberFromContext(r.Context())
		require.True(t, ok)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": m.ID, "role": m.Role})
	})
}

func request(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["code"]
}

func TestAuthenticate(t *testing.T) {
	h := newAuthenticator().Authenticate(memberEcho(t))

	token, err := NewToken(testSecret, 42, RoleMember, time.Hour)
	require.NoError(t, err)

	rec := request(t, h, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"role":"member"}`, rec.Body.String())
}

func TestAuthenticateRejects(t *testing.T) {
	h := newAuthenticator().Authenticate(memberEcho(t))

	expired, err := NewToken(testSecret, 42, RoleMember, -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := NewToken("other-secret", 42, RoleMember, time.Hour)
	require.NoError(t, err)
	noMember, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": RoleAdmin}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	fractional, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"member_id": 1.5}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"member_id": 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"wrong secret": wrongSecret,
		"no member id": noMember,
		"fractional":   fractional,
		"alg none":     noneAlg,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			rec := request(t, h, token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", errorCode(t, rec))
		})
	}
}

func TestAuthenticateDefaultsRoleToMember(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"member_id": 9,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := request(t, newAuthenticator().Authenticate(memberEcho(t)), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":9,"role":"member"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := newAuthenticator().Authenticate(RequireRole(RoleAdmin)(ok))

	admin, err := NewToken(testSecret, 1, RoleAdmin, time.Hour)
	require.NoError(t, err)
	member, err := NewToken(testSecret, 2, RoleMember, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, request(t, h, admin).Code)

	rec := request(t, h, member)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorCode(t, rec))

	rec = request(t, RequireRole(RoleAdmin)(ok), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMemberFromContextWithoutMember(t *testing.T) {
	_, ok := MemberFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
