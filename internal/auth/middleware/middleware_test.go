package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret")
	tok, err := a.IssueJWT("alice", rbac.RoleUser)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Sub)
	assert.Equal(t, rbac.RoleUser, c.Role)
	assert.Equal(t, issuer, c.Issuer)

	_, err = NewAuthService("other").Parse(tok)
	assert.Error(t, err)
	_, err = a.Parse("not-a-token")
	assert.Error(t, err)
}

func login(t *testing.T, h http.Handler, user, pass string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"username":"` + user + `","password":"` + pass + `"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	return rec
}

func TestLoginHandler(t *testing.T) {
	a := NewAuthService("secret")
	h := newDB(t)
	require.NoError(t, UpsertUser(context.Background(), h, "root", "s3cret", rbac.RoleAdmin))

	dev := LoginHandler(a, h, true)

	rec := login(t, dev, "root", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "root", out.Username)
	c, err := a.Parse(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, c.Role)

	assert.Equal(t, http.StatusUnauthorized, login(t, dev, "root", "root").Code, "registered users never use the dev rule")
	assert.Equal(t, http.StatusOK, login(t, dev, "alice", "alice").Code)
	assert.Equal(t, http.StatusUnauthorized, login(t, dev, "alice", "wrong").Code)
	assert.Equal(t, http.StatusBadRequest, login(t, dev, "", "x").Code)

	strict := LoginHandler(a, h, false)
	assert.Equal(t, http.StatusUnauthorized, login(t, strict, "alice", "alice").Code)
	assert.Equal(t, http.StatusOK, login(t, strict, "root", "s3cret").Code)
}

func TestUpsertUser(t *testing.T) {
	h := newDB(t)
	ctx := context.Background()
	require.NoError(t, UpsertUser(ctx, h, "bob", "one", ""))
	role, err := Authenticate(ctx, h, "bob", "one")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, role)

	require.NoError(t, UpsertUser(ctx, h, "bob", "two", rbac.RoleAdmin))
	_, err = Authenticate(ctx, h, "bob", "one")
	assert.ErrorIs(t, err, ErrBadPassword)
	role, err = Authenticate(ctx, h, "bob", "two")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, role)

	assert.Error(t, UpsertUser(ctx, h, "carol", "x", "teacher"))
	_, err = Authenticate(ctx, h, "nobody", "x")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret")
	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub, gotRole = SubjectFromContext(r.Context()), rbac.RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT("alice", rbac.RoleUser)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", gotSub)
	assert.Equal(t, rbac.RoleUser, gotRole)

	// query token only on websocket upgrades
	req = httptest.NewRequest(http.MethodGet, "/subscribe/tests?access_token="+tok, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttachRoleFromDB(t *testing.T) {
	h := newDB(t)
	require.NoError(t, UpsertUser(context.Background(), h, "root", "pw", rbac.RoleAdmin))

	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = rbac.RoleFromContext(r.Context()) })
	serve := func(fallback bool, sub, role string) int {
		ctx := rbac.WithRole(WithSubject(context.Background(), sub), role)
		rec := httptest.NewRecorder()
		AttachRoleFromDB(h, fallback)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		return rec.Code
	}

	got = ""
	assert.Equal(t, http.StatusOK, serve(false, "root", rbac.RoleUser))
	assert.Equal(t, rbac.RoleAdmin, got)

	got = ""
	assert.Equal(t, http.StatusOK, serve(true, "alice", rbac.RoleUser))
	assert.Equal(t, rbac.RoleUser, got)

	assert.Equal(t, http.StatusForbidden, serve(false, "alice", rbac.RoleUser))
}
