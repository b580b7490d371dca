package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)

	for _, p := range []string{PermTestView, PermTestWrite, PermTestExport, PermQuestionAnswer, PermGenerate, PermEventsView, PermSubscribe} {
		assert.True(t, c.Has(RoleUser, p), p)
	}
	assert.False(t, c.Has(RoleUser, PermUsersManage))
	assert.True(t, c.Has(RoleAdmin, PermUsersManage))
	assert.False(t, c.Has("guest", PermTestView))

	assert.True(t, c.Any(RoleUser, PermUsersManage, PermTestView))
	assert.False(t, c.All(RoleUser, PermUsersManage, PermTestView))
	assert.True(t, c.All(RoleAdmin, PermUsersManage, PermTestView))

	assert.True(t, KnownRole(RoleUser))
	assert.False(t, KnownRole("teacher"))
}

func TestMatchPerm(t *testing.T) {
	assert.True(t, matchPerm("test:*", "test:view"))
	assert.False(t, matchPerm("test:*", "question:view"))
	assert.True(t, matchPerm("events:view", "events:view"))
	assert.False(t, matchPerm("events:view", "events:subscribe"))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	cases := []struct {
		role string
		mw   func(http.Handler) http.Handler
		want int
	}{
		{RoleUser, Require(PermTestWrite), http.StatusNoContent},
		{RoleUser, Require(PermUsersManage), http.StatusForbidden},
		{"", Require(PermTestView), http.StatusForbidden},
		{RoleUser, RequireAny(PermUsersManage, PermEventsView), http.StatusNoContent},
		{RoleAdmin, Require(PermUsersManage), http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(context.Background(), tc.role))
		rec := httptest.NewRecorder()
		tc.mw(ok).ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "role=%q", tc.role)
		if tc.want == http.StatusForbidden {
			assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
		}
	}
}
