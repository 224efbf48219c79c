package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/clothingstore/catalog-service/internal/platform/metrics"
	"github.com/clothingstore/catalog-service/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

type MockStoreService struct {
	mock.Mock
}

func (m *MockStoreService) RegisterStore(ctx context.Context, actor domain.Actor, in usecase.StoreInput) (*usecase.RegisterResult, error) {
	args := m.Called(ctx, actor, in)
	if r, ok := args.Get(0).(*usecase.RegisterResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoreService) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	args := m.Called(ctx, storeID)
	if s, ok := args.Get(0).(*domain.Store); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoreService) ListStores(ctx context.Context, page, limit int, sort string) (*usecase.StorePage, error) {
	args := m.Called(ctx, page, limit, sort)
	if p, ok := args.Get(0).(*usecase.StorePage); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoreService) UpdateStore(ctx context.Context, actor domain.Actor, storeID string, upd usecase.StoreUpdate) (*domain.Store, error) {
	args := m.Called(ctx, actor, storeID, upd)
	if s, ok := args.Get(0).(*domain.Store); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoreService) DeleteStore(ctx context.Context, actor domain.Actor, storeID string) error {
	return m.Called(ctx, actor, storeID).Error(0)
}

func (m *MockStoreService) DeleteBranch(ctx context.Context, actor domain.Actor, storeID, branchID string) error {
	return m.Called(ctx, actor, storeID, branchID).Error(0)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) AddReview(ctx context.Context, actor domain.Actor, storeID string, in usecase.ReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, actor, storeID, in)
	if r, ok := args.Get(0).(*domain.Review); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReviewService) EditReview(ctx context.Context, actor domain.Actor, storeID, reviewID string, upd usecase.ReviewUpdate) (*domain.Review, error) {
	args := m.Called(ctx, actor, storeID, reviewID, upd)
	if r, ok := args.Get(0).(*domain.Review); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReviewService) DeleteReview(ctx context.Context, actor domain.Actor, storeID, reviewID string) error {
	return m.Called(ctx, actor, storeID, reviewID).Error(0)
}

func (m *MockReviewService) AddReply(ctx context.Context, actor domain.Actor, storeID, reviewID, text string) (*domain.Reply, error) {
	args := m.Called(ctx, actor, storeID, reviewID, text)
	if r, ok := args.Get(0).(*domain.Reply); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReviewService) EditReply(ctx context.Context, actor domain.Actor, storeID, reviewID, replyID, text string) error {
	return m.Called(ctx, actor, storeID, reviewID, replyID, text).Error(0)
}

func (m *MockReviewService) DeleteReply(ctx context.Context, actor domain.Actor, storeID, reviewID, replyID string) error {
	return m.Called(ctx, actor, storeID, reviewID, replyID).Error(0)
}

func (m *MockReviewService) ListReviews(ctx context.Context, storeID string, page, limit int) (*usecase.ReviewPage, error) {
	args := m.Called(ctx, storeID, page, limit)
	if p, ok := args.Get(0).(*usecase.ReviewPage); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestServer(t *testing.T) (*MockStoreService, *MockReviewService, http.Handler) {
	t.Helper()
	stores := new(MockStoreService)
	reviews := new(MockReviewService)
	log := logger.NewLogger()
	m := metrics.NewManager("httptest")
	h := NewHandler(stores, reviews, m, log)
	return stores, reviews, NewRouter(h, testSecret, m, log)
}

func signToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestListReviews_DefaultsPageAndLimit(t *testing.T) {
	_, reviews, router := newTestServer(t)

	reviews.On("ListReviews", mock.Anything, "abc", 1, 5).
		Return(&usecase.ReviewPage{Reviews: []domain.Review{}, Total: 0, Page: 1, Limit: 5}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/stores/abc/reviews", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	reviews.AssertExpectations(t)
}

func TestListReviews_QueryParamsPassedThrough(t *testing.T) {
	_, reviews, router := newTestServer(t)

	reviews.On("ListReviews", mock.Anything, "abc", 2, 3).
		Return(&usecase.ReviewPage{Reviews: []domain.Review{}, Total: 7, Page: 2, Limit: 3, TotalPages: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/stores/abc/reviews?page=2&limit=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["total"])
	assert.Equal(t, float64(3), body["total_pages"])
}

func TestAddReview_RequiresAuth(t *testing.T) {
	_, reviews, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/add", strings.NewReader(`{"rating":4,"comment":"ok"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	reviews.AssertNotCalled(t, "AddReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddReview_ActorResolvedFromToken(t *testing.T) {
	_, reviews, router := newTestServer(t)

	expectedActor := domain.Actor{ID: "user-9", Role: domain.RoleCustomer}
	reviews.On("AddReview", mock.Anything, expectedActor, "abc", usecase.ReviewInput{Rating: 4, Comment: "ok"}).
		Return(&domain.Review{ReviewID: "r1", User: "user-9", Rating: 4, Comment: "ok"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/add", strings.NewReader(`{"rating":4,"comment":"ok"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-9", "customer"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	reviews.AssertExpectations(t)
}

func TestAddReview_UnknownRoleDegradesToCustomer(t *testing.T) {
	_, reviews, router := newTestServer(t)

	reviews.On("AddReview", mock.Anything, domain.Actor{ID: "user-9", Role: domain.RoleCustomer}, "abc", mock.Anything).
		Return(&domain.Review{ReviewID: "r1", User: "user-9", Rating: 4}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/add", strings.NewReader(`{"rating":4,"comment":"ok"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-9", "superuser"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	reviews.AssertExpectations(t)
}

func TestAddReview_InvalidTokenRejected(t *testing.T) {
	_, _, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/add", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"validation", domain.ErrInvalidInput, http.StatusBadRequest},
		{"conflict", domain.ErrAlreadyReviewed, http.StatusConflict},
		{"storage", domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reviews, router := newTestServer(t)
			reviews.On("AddReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, tt.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/add", strings.NewReader(`{"rating":4,"comment":"ok"}`))
			req.Header.Set("Authorization", "Bearer "+signToken(t, "user-9", "customer"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestInternalErrorBodyIsOpaque(t *testing.T) {
	_, reviews, router := newTestServer(t)
	reviews.On("AddReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/add", strings.NewReader(`{"rating":4,"comment":"ok"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-9", "customer"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestDeleteReview_NoContentOnSuccess(t *testing.T) {
	_, reviews, router := newTestServer(t)

	actor := domain.Actor{ID: "owner-1", Role: domain.RoleStoreOwner}
	reviews.On("DeleteReview", mock.Anything, actor, "abc", "r1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/stores/abc/reviews/r1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "owner-1", "store_owner"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	reviews.AssertExpectations(t)
}

func TestAddReply_BodyCannotGrantAdmin(t *testing.T) {
	// is_admin comes from the verified role; an is_admin field in the body
	// is simply ignored by the decoder.
	_, reviews, router := newTestServer(t)

	actor := domain.Actor{ID: "owner-1", Role: domain.RoleStoreOwner}
	reviews.On("AddReply", mock.Anything, actor, "abc", "r1", "thanks").
		Return(&domain.Reply{ReplyID: "p1", User: "owner-1", Text: "thanks", IsAdmin: false}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/r1/reply", strings.NewReader(`{"text":"thanks","is_admin":true}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "owner-1", "store_owner"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body replyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.IsAdmin)
}

func TestGetStore_Public(t *testing.T) {
	stores, _, router := newTestServer(t)

	stores.On("GetStore", mock.Anything, "abc").
		Return(&domain.Store{ID: "abc", CompanyName: "Denim & Co", Location: "Almaty", Views: 12}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/stores/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body storeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Denim & Co", body.CompanyName)
	assert.Equal(t, int64(12), body.Views)
}

func TestCreateStore_MergedReturnsOK(t *testing.T) {
	stores, _, router := newTestServer(t)

	stores.On("RegisterStore", mock.Anything, mock.Anything, mock.Anything).
		Return(&usecase.RegisterResult{StoreID: "abc", BranchID: "b2", Merged: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader(`{"company_name":"Denim & Co","location":"Almaty"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "owner-1", "store_owner"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["merged"])
}

func TestMalformedJSONBody(t *testing.T) {
	_, reviews, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/stores/abc/reviews/add", strings.NewReader(`{not json`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-9", "customer"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	reviews.AssertNotCalled(t, "AddReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
