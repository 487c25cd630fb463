package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"merx/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func freshClaims(ttl time.Duration) *Claims {
	return &Claims{
		Username: "alice",
		UserID:   "u1",
		Role:     "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

type fakeRevoker struct {
	revoked map[string]bool
}

func (f *fakeRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

type fakeUsers struct {
	users map[string]models.User
}

func (f *fakeUsers) FindByID(_ context.Context, userID string) (models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return user, nil
}

func runAuthenticate(a *Auth, header string) (*httptest.ResponseRecorder, *http.Request) {
	var captured *http.Request
	next := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		captured = r
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	a.Authenticate(next)(rec, req, nil)
	return rec, captured
}

func TestAuthenticateValidToken(t *testing.T) {
	a := NewAuth(testSecret, nil, nil)
	token := signToken(t, freshClaims(time.Hour))

	rec, captured := runAuthenticate(a, "Bearer "+token)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "u1", UserIDFromContext(captured.Context()))
	assert.Equal(t, "user", RoleFromContext(captured.Context()))
	assert.Equal(t, "alice", UsernameFromContext(captured.Context()))
}

func TestAuthenticateMissingToken(t *testing.T) {
	a := NewAuth(testSecret, nil, nil)

	rec, captured := runAuthenticate(a, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No token provided", body["message"])
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	a := NewAuth(testSecret, nil, nil)

	otherSecret := jwt.NewWithClaims(jwt.SigningMethodHS256, freshClaims(time.Hour))
	forged, err := otherSecret.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"garbage", "Bearer not.a.jwt"},
		{"wrong scheme", "Basic abc123"},
		{"wrong secret", "Bearer " + forged},
		{"expired", "Bearer " + signToken(t, freshClaims(-time.Minute))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, captured := runAuthenticate(a, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, captured)
		})
	}
}

func TestAuthenticateRevokedToken(t *testing.T) {
	revoker := &fakeRevoker{revoked: map[string]bool{"jti-1": true}}
	a := NewAuth(testSecret, nil, revoker)

	rec, captured := runAuthenticate(a, "Bearer "+signToken(t, freshClaims(time.Hour)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)
}

func TestParseTokenRoundTrip(t *testing.T) {
	a := NewAuth(testSecret, nil, nil)
	want := freshClaims(time.Hour)

	claims, err := a.ParseToken(signToken(t, want))

	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "jti-1", claims.ID)
}

func runRequireAdmin(a *Auth, userID string) (*httptest.ResponseRecorder, bool) {
	called := false
	next := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
	}
	rec := httptest.NewRecorder()
	a.RequireAdmin(next)(rec, req, nil)
	return rec, called
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	users := &fakeUsers{users: map[string]models.User{
		"u1": {UserID: "u1", Role: models.RoleUser},
	}}
	a := NewAuth(testSecret, users, nil)

	rec, called := runRequireAdmin(a, "u1")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Admin privileges required", body["message"])
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	users := &fakeUsers{users: map[string]models.User{
		"u1": {UserID: "u1", Role: models.RoleAdmin},
	}}
	a := NewAuth(testSecret, users, nil)

	rec, called := runRequireAdmin(a, "u1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireAdminChecksCurrentRole(t *testing.T) {
	// The token may still say admin; the database record wins.
	users := &fakeUsers{users: map[string]models.User{
		"u1": {UserID: "u1", Role: models.RoleUser},
	}}
	a := NewAuth(testSecret, users, nil)

	adminClaims := freshClaims(time.Hour)
	adminClaims.Role = "admin"
	token := signToken(t, adminClaims)

	next := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.Authenticate(a.RequireAdmin(next))(rec, req, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminUnknownUser(t *testing.T) {
	a := NewAuth(testSecret, &fakeUsers{users: map[string]models.User{}}, nil)

	rec, called := runRequireAdmin(a, "ghost")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestRequireAdminWithoutIdentity(t *testing.T) {
	// RequireAdmin before Authenticate has no identity in context and must
	// refuse rather than hit the database.
	a := NewAuth(testSecret, nil, nil)

	called := false
	next := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) { called = true }

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	a.RequireAdmin(next)(rec, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}
