package organizations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/internal/models"
)

// MockOrgLister is a mock implementation of OrgLister
type MockOrgLister struct {
	mock.Mock
}

func (m *MockOrgLister) Load(ctx context.Context, scope *uuid.UUID, f OrgFilter) (*listing.Result[models.Organization], error) {
	args := m.Called(scope, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Result[models.Organization]), args.Error(1)
}

func newRouter(h *Handler, org, user uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, user)
		c.Set(middleware.ContextOrgID, org)
		c.Next()
	})
	r.GET("/organizations", h.ListMine)
	r.PATCH("/organizations/:id", h.Rename)
	r.POST("/organizations/:id/members", h.AddMember)
	r.PATCH("/organizations/:id/members/:userId", h.ChangeRole)
	r.DELETE("/organizations/:id/members/:userId", h.RemoveMember)
	return r
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_ListMine_ScopedByUser(t *testing.T) {
	orgs := new(MockOrgLister)
	user := uuid.New()
	orgs.On("Load", &user, OrgFilter{Search: "acme"}).
		Return(&listing.Result[models.Organization]{Rows: []models.Organization{{Name: "Acme"}}}, nil)

	w := httptest.NewRecorder()
	newRouter(NewHandler(nil, orgs, nil, nil), uuid.New(), user).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/organizations?search=acme", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Acme"`)
	orgs.AssertExpectations(t)
}

func TestHandler_AddMember_UserNotFound(t *testing.T) {
	repo := new(MockStore)
	org := uuid.New()
	repo.On("GetUserByEmail", "ghost@example.com").Return(nil, ErrUserNotFound)
	h := NewHandler(nil, nil, NewService(repo, new(MockInvalidator), nil), nil)

	w := httptest.NewRecorder()
	newRouter(h, org, uuid.New()).ServeHTTP(w,
		jsonRequest(http.MethodPost, "/organizations/"+org.String()+"/members", `{"email":"ghost@example.com","role":"member"}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"user not found"}`, w.Body.String())
	repo.AssertNotCalled(t, "InsertMember", mock.Anything)
}

func TestHandler_AddMember_InvalidEmail(t *testing.T) {
	org := uuid.New()
	w := httptest.NewRecorder()
	newRouter(NewHandler(nil, nil, NewService(new(MockStore), nil, nil), nil), org, uuid.New()).ServeHTTP(w,
		jsonRequest(http.MethodPost, "/organizations/"+org.String()+"/members", `{"email":"not-an-email"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ChangeRole_And_Remove(t *testing.T) {
	repo := new(MockStore)
	inv := new(MockInvalidator)
	org, user := uuid.New(), uuid.New()
	repo.On("UpdateRole", org, user, "admin").Return(nil)
	repo.On("DeleteMember", org, user).Return(nil)
	inv.On("Invalidate", org, mock.Anything).Return(nil)
	r := newRouter(NewHandler(nil, nil, NewService(repo, inv, nil), nil), org, uuid.New())
	target := "/organizations/" + org.String() + "/members/" + user.String()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodPatch, target, `{"role":"ADMIN "}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"user_id":"`+user.String()+`","role":"admin"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, target, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	repo.AssertExpectations(t)
}

func TestHandler_Rename(t *testing.T) {
	repo := new(MockStore)
	inv := new(MockInvalidator)
	org := uuid.New()
	repo.On("Rename", org, "New Name").Return(&models.Organization{ID: org, Name: "New Name"}, nil)
	inv.On("Invalidate", org, []string{listing.CollectionOrganizations}).Return(nil)

	w := httptest.NewRecorder()
	newRouter(NewHandler(nil, nil, NewService(repo, inv, nil), nil), org, uuid.New()).
		ServeHTTP(w, jsonRequest(http.MethodPatch, "/organizations/"+org.String(), `{"name":"New Name"}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"New Name"`)
}
