package stores

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

// MockLister is a mock implementation of Lister
type MockLister struct {
	mock.Mock
}

func (m *MockLister) Load(ctx context.Context, scope *uuid.UUID, f Filter) (*listing.Result[models.Store], error) {
	args := m.Called(scope, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Result[models.Store]), args.Error(1)
}

func newRouter(h *Handler, org, user uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, user)
		c.Set(middleware.ContextOrgID, org)
		c.Next()
	})
	r.GET("/stores", h.List)
	r.GET("/organizations/:id/stores/:storeId/credentials", h.GetCredentials)
	r.PUT("/organizations/:id/stores/:storeId/credentials", h.SaveCredentials)
	r.POST("/organizations/:id/stores/:storeId/health-check", h.HealthCheck)
	return r
}

func TestHandler_List(t *testing.T) {
	lister := new(MockLister)
	org := uuid.New()
	lister.On("Load", &org, Filter{Platform: "all", Status: "expired"}).
		Return(&listing.Result[models.Store]{Rows: []models.Store{{Name: "Amazon US"}}, Fetched: 3}, nil)

	w := httptest.NewRecorder()
	newRouter(NewHandler(lister, nil, nil), org, uuid.New()).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stores?status=expired", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"query":"status=expired"`)
	lister.AssertExpectations(t)
}

func TestHandler_SaveCredentials(t *testing.T) {
	repo := new(MockStore)
	inv := new(MockInvalidator)
	org, store := uuid.New(), uuid.New()
	repo.On("GetByID", org, store).Return(&models.Store{ID: store}, nil)
	repo.On("GetCredential", store).Return(nil, ErrCredentialNotFound)
	repo.On("InsertCredential", mock.Anything).Return(nil)
	inv.On("Invalidate", org, []string{listing.CollectionStores}).Return(nil)
	h := NewHandler(nil, NewService(repo, inv, nil, nil), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/organizations/"+org.String()+"/stores/"+store.String()+"/credentials",
		strings.NewReader(`{"credentials":{"api_key":"wh_live_0123456789"}}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(h, org, uuid.New()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "6789")
	assert.NotContains(t, w.Body.String(), "wh_live_0123456789")
	inv.AssertExpectations(t)
}

func TestHandler_SaveCredentials_BadBody(t *testing.T) {
	org, store := uuid.New(), uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/organizations/"+org.String()+"/stores/"+store.String()+"/credentials",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(NewHandler(nil, NewService(new(MockStore), nil, nil, nil), nil), org, uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetCredentials_UnknownStore(t *testing.T) {
	repo := new(MockStore)
	org, store := uuid.New(), uuid.New()
	repo.On("GetByID", org, store).Return(nil, ErrStoreNotFound)

	w := httptest.NewRecorder()
	newRouter(NewHandler(nil, NewService(repo, nil, nil, nil), nil), org, uuid.New()).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/organizations/"+org.String()+"/stores/"+store.String()+"/credentials", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "store not found")
}
