package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubMembers map[uuid.UUID]string

func (s stubMembers) MemberRole(_ context.Context, orgID, _ uuid.UUID) (string, error) {
	if role, ok := s[orgID]; ok {
		if role == "error" {
			return "", errors.New("db down")
		}
		return role, nil
	}
	return "", nil
}

type stubActive struct {
	id  *uuid.UUID
	err error
}

func (s stubActive) ActiveOrg(context.Context, uuid.UUID) (*uuid.UUID, error) { return s.id, s.err }

func init() { gin.SetMode(gin.TestMode) }

func scopeRouter(members MembershipChecker, active ActiveOrgReader) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ContextUserID, uuid.New()); c.Next() })
	r.GET("/list", OrgScope(members, active), func(c *gin.Context) {
		if id := Scope(c); id != nil {
			c.String(http.StatusOK, id.String())
			return
		}
		c.String(http.StatusOK, "none")
	})
	return r
}

func TestOrgScope_QueryParam(t *testing.T) {
	org := uuid.New()
	r := scopeRouter(stubMembers{org: "member"}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/list?org_id="+org.String(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, org.String(), w.Body.String())
}

func TestOrgScope_FallsBackToActiveOrg(t *testing.T) {
	org := uuid.New()
	r := scopeRouter(stubMembers{org: "admin"}, stubActive{id: &org})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/list", nil))

	assert.Equal(t, org.String(), w.Body.String())
}

func TestOrgScope_NoOrganizationPassesThrough(t *testing.T) {
	r := scopeRouter(stubMembers{}, stubActive{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/list", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", w.Body.String())
}

func TestOrgScope_ActiveOrgReadError(t *testing.T) {
	r := scopeRouter(stubMembers{}, stubActive{err: errors.New("redis down")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/list", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to load active organization")
}

func TestOrgScope_StaleActiveOrgIsNoScope(t *testing.T) {
	org := uuid.New()
	r := scopeRouter(stubMembers{}, stubActive{id: &org})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/list", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/list?org_id="+org.String(), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrgScope_Rejections(t *testing.T) {
	org := uuid.New()
	broken := uuid.New()
	r := scopeRouter(stubMembers{broken: "error"}, nil)

	cases := map[string]int{
		"/list?org_id=nope":              http.StatusBadRequest,
		"/list?org_id=" + org.String():    http.StatusForbidden,
		"/list?org_id=" + broken.String(): http.StatusInternalServerError,
	}
	for path, code := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, w.Code, path)
	}
}

func TestRequireOrgRole(t *testing.T) {
	adminOrg := uuid.New()
	memberOrg := uuid.New()
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ContextUserID, uuid.New()); c.Next() })
	r.PATCH("/organizations/:id", RequireOrgRole(stubMembers{adminOrg: "admin", memberOrg: "member"}, "admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := map[string]int{
		"/organizations/" + adminOrg.String():   http.StatusNoContent,
		"/organizations/" + memberOrg.String():  http.StatusForbidden,
		"/organizations/" + uuid.New().String(): http.StatusForbidden,
		"/organizations/bad":                    http.StatusBadRequest,
	}
	for path, code := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, path, nil))
		assert.Equal(t, code, w.Code, path)
	}
}
