// Package httpapi exposes the catalog and review operations over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/clothingstore/catalog-service/internal/middleware"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/clothingstore/catalog-service/internal/platform/metrics"
	"github.com/clothingstore/catalog-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 5
)

// ReviewService is the review usecase surface the handlers need.
type ReviewService interface {
	AddReview(ctx context.Context, actor domain.Actor, storeID string, in usecase.ReviewInput) (*domain.Review, error)
	EditReview(ctx context.Context, actor domain.Actor, storeID, reviewID string, upd usecase.ReviewUpdate) (*domain.Review, error)
	DeleteReview(ctx context.Context, actor domain.Actor, storeID, reviewID string) error
	AddReply(ctx context.Context, actor domain.Actor, storeID, reviewID, text string) (*domain.Reply, error)
	EditReply(ctx context.Context, actor domain.Actor, storeID, reviewID, replyID, text string) error
	DeleteReply(ctx context.Context, actor domain.Actor, storeID, reviewID, replyID string) error
	ListReviews(ctx context.Context, storeID string, page, limit int) (*usecase.ReviewPage, error)
}

// StoreService is the storefront usecase surface the handlers need.
type StoreService interface {
	RegisterStore(ctx context.Context, actor domain.Actor, in usecase.StoreInput) (*usecase.RegisterResult, error)
	GetStore(ctx context.Context, storeID string) (*domain.Store, error)
	ListStores(ctx context.Context, page, limit int, sort string) (*usecase.StorePage, error)
	UpdateStore(ctx context.Context, actor domain.Actor, storeID string, upd usecase.StoreUpdate) (*domain.Store, error)
	DeleteStore(ctx context.Context, actor domain.Actor, storeID string) error
	DeleteBranch(ctx context.Context, actor domain.Actor, storeID, branchID string) error
}

// Handler holds the HTTP handlers for the catalog API.
type Handler struct {
	stores  StoreService
	reviews ReviewService
	metrics *metrics.Manager
	logger  *logger.Logger
}

// NewHandler wires the HTTP handlers.
func NewHandler(stores StoreService, reviews ReviewService, m *metrics.Manager, log *logger.Logger) *Handler {
	return &Handler{
		stores:  stores,
		reviews: reviews,
		metrics: m,
		logger:  log.Named("HTTPHandler"),
	}
}

// --- response shapes ---

type replyResponse struct {
	ReplyID   string     `json:"reply_id"`
	User      string     `json:"user"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	IsAdmin   bool       `json:"is_admin"`
}

type reviewResponse struct {
	ReviewID  string          `json:"review_id"`
	User      string          `json:"user"`
	Rating    float64         `json:"rating"`
	Comment   string          `json:"comment"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Replies   []replyResponse `json:"replies"`
}

type storeResponse struct {
	ID            string     `json:"id"`
	CompanyName   string     `json:"company_name"`
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	Location      string     `json:"location"`
	WorkType      string     `json:"work_type,omitempty"`
	Branches      []string   `json:"branches"`
	Owner         string     `json:"owner"`
	Managers      []string   `json:"managers"`
	Views         int64      `json:"views"`
	AverageRating float64    `json:"average_rating"`
	ReviewCount   int        `json:"review_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func toReplyResponse(r *domain.Reply) replyResponse {
	return replyResponse{
		ReplyID:   r.ReplyID,
		User:      r.User,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		IsAdmin:   r.IsAdmin,
	}
}

func toReviewResponse(rv *domain.Review) reviewResponse {
	replies := make([]replyResponse, 0, len(rv.Replies))
	for i := range rv.Replies {
		replies = append(replies, toReplyResponse(&rv.Replies[i]))
	}
	return reviewResponse{
		ReviewID:  rv.ReviewID,
		User:      rv.User,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
		UpdatedAt: rv.UpdatedAt,
		Replies:   replies,
	}
}

func toStoreResponse(s *domain.Store) storeResponse {
	return storeResponse{
		ID:            s.ID,
		CompanyName:   s.CompanyName,
		Title:         s.Title,
		Description:   s.Description,
		Location:      s.Location,
		WorkType:      s.WorkType,
		Branches:      s.Branches,
		Owner:         s.Owner,
		Managers:      s.Managers,
		Views:         s.Views,
		AverageRating: s.AverageRating,
		ReviewCount:   s.ReviewCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// --- helpers ---

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP statuses and counts them.
func (h *Handler) writeError(w http.ResponseWriter, route string, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrAlreadyReviewed):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrStorageUnavailable):
		status, kind = http.StatusServiceUnavailable, "storage"
	default:
		status, kind = http.StatusInternalServerError, "internal"
	}

	h.metrics.APIErrorsTotal.WithLabelValues(route, kind).Inc()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("route", route), zap.Error(err))
		h.writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, route string, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.metrics.APIErrorsTotal.WithLabelValues(route, "validation").Inc()
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return domain.Actor{}, false
	}
	return actor, true
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// --- store handlers ---

type createStoreRequest struct {
	CompanyName string   `json:"company_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	WorkType    string   `json:"work_type"`
	Managers    []string `json:"managers"`
}

type updateStoreRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	WorkType    *string   `json:"work_type"`
	Managers    *[]string `json:"managers"`
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	const route = "POST /stores"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req createStoreRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	res, err := h.stores.RegisterStore(r.Context(), actor, usecase.StoreInput{
		CompanyName: req.CompanyName,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		WorkType:    req.WorkType,
		Managers:    req.Managers,
	})
	if err != nil {
		h.writeError(w, route, err)
		return
	}

	status := http.StatusCreated
	if res.Merged {
		status = http.StatusOK
	}
	h.writeJSON(w, status, map[string]interface{}{
		"store_id":  res.StoreID,
		"branch_id": res.BranchID,
		"merged":    res.Merged,
	})
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	const route = "GET /stores/{storeID}"
	store, err := h.stores.GetStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toStoreResponse(store))
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	const route = "GET /stores"
	page := queryInt(r, "page", defaultPage)
	limit := queryInt(r, "limit", 10)
	sort := r.URL.Query().Get("sort")

	result, err := h.stores.ListStores(r.Context(), page, limit, sort)
	if err != nil {
		h.writeError(w, route, err)
		return
	}

	stores := make([]storeResponse, 0, len(result.Stores))
	for _, s := range result.Stores {
		stores = append(stores, toStoreResponse(s))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stores":      stores,
		"total":       result.Total,
		"page":        result.Page,
		"limit":       result.Limit,
		"total_pages": result.TotalPages,
	})
}

func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) {
	const route = "PATCH /stores/{storeID}"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req updateStoreRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	store, err := h.stores.UpdateStore(r.Context(), actor, chi.URLParam(r, "storeID"), usecase.StoreUpdate{
		Title:       req.Title,
		Description: req.Description,
		WorkType:    req.WorkType,
		Managers:    req.Managers,
	})
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toStoreResponse(store))
}

func (h *Handler) deleteStore(w http.ResponseWriter, r *http.Request) {
	const route = "DELETE /stores/{storeID}"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.stores.DeleteStore(r.Context(), actor, chi.URLParam(r, "storeID")); err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) deleteBranch(w http.ResponseWriter, r *http.Request) {
	const route = "DELETE /stores/{storeID}/branches/{branchID}"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	err := h.stores.DeleteBranch(r.Context(), actor, chi.URLParam(r, "storeID"), chi.URLParam(r, "branchID"))
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// --- review handlers ---

type addReviewRequest struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

type editReviewRequest struct {
	Rating  *float64 `json:"rating"`
	Comment *string  `json:"comment"`
}

type replyRequest struct {
	Text string `json:"text"`
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	const route = "GET /stores/{storeID}/reviews"
	page := queryInt(r, "page", defaultPage)
	limit := queryInt(r, "limit", defaultLimit)

	result, err := h.reviews.ListReviews(r.Context(), chi.URLParam(r, "storeID"), page, limit)
	if err != nil {
		h.writeError(w, route, err)
		return
	}

	reviews := make([]reviewResponse, 0, len(result.Reviews))
	for i := range result.Reviews {
		reviews = append(reviews, toReviewResponse(&result.Reviews[i]))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"reviews":     reviews,
		"total":       result.Total,
		"page":        result.Page,
		"limit":       result.Limit,
		"total_pages": result.TotalPages,
	})
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	const route = "POST /stores/{storeID}/reviews/add"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req addReviewRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	review, err := h.reviews.AddReview(r.Context(), actor, chi.URLParam(r, "storeID"), usecase.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (h *Handler) editReview(w http.ResponseWriter, r *http.Request) {
	const route = "PATCH /stores/{storeID}/reviews/{reviewID}"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req editReviewRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	review, err := h.reviews.EditReview(r.Context(), actor,
		chi.URLParam(r, "storeID"), chi.URLParam(r, "reviewID"),
		usecase.ReviewUpdate{Rating: req.Rating, Comment: req.Comment},
	)
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toReviewResponse(review))
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	const route = "DELETE /stores/{storeID}/reviews/{reviewID}"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	err := h.reviews.DeleteReview(r.Context(), actor, chi.URLParam(r, "storeID"), chi.URLParam(r, "reviewID"))
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) addReply(w http.ResponseWriter, r *http.Request) {
	const route = "POST /stores/{storeID}/reviews/{reviewID}/reply"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	reply, err := h.reviews.AddReply(r.Context(), actor,
		chi.URLParam(r, "storeID"), chi.URLParam(r, "reviewID"), req.Text)
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toReplyResponse(reply))
}

func (h *Handler) editReply(w http.ResponseWriter, r *http.Request) {
	const route = "PATCH /stores/{storeID}/reviews/{reviewID}/reply/{replyID}"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if !h.decode(w, r, route, &req) {
		return
	}

	err := h.reviews.EditReply(r.Context(), actor,
		chi.URLParam(r, "storeID"), chi.URLParam(r, "reviewID"), chi.URLParam(r, "replyID"), req.Text)
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteReply(w http.ResponseWriter, r *http.Request) {
	const route = "DELETE /stores/{storeID}/reviews/{reviewID}/reply/{replyID}"
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	err := h.reviews.DeleteReply(r.Context(), actor,
		chi.URLParam(r, "storeID"), chi.URLParam(r, "reviewID"), chi.URLParam(r, "replyID"))
	if err != nil {
		h.writeError(w, route, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
