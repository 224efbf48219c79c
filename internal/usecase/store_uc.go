package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/clothingstore/catalog-service/internal/pagination"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/clothingstore/catalog-service/internal/port/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreInput is the payload for registering a storefront.
type StoreInput struct {
	CompanyName string
	Title       string
	Description string
	Location    string
	WorkType    string
	Managers    []string
}

// StoreUpdate carries the mutable store profile fields. Nil means the field
// is left untouched.
type StoreUpdate struct {
	Title       *string
	Description *string
	WorkType    *string
	Managers    *[]string
}

// RegisterResult reports where a registration landed: a freshly inserted
// store, or a new branch folded into an existing one.
type RegisterResult struct {
	StoreID  string
	BranchID string
	Merged   bool
}

// StorePage is one page of the catalog listing.
type StorePage struct {
	Stores     []*domain.Store
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// StoreUsecase implements storefront registration and catalog operations.
type StoreUsecase struct {
	repo     domain.StoreRepository
	cache    cache.Repository
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewStoreUsecase wires the store usecase. cacheRepo may be nil to disable
// the store-summary cache.
func NewStoreUsecase(repo domain.StoreRepository, cacheRepo cache.Repository, cacheTTL time.Duration, log *logger.Logger) *StoreUsecase {
	return &StoreUsecase{
		repo:     repo,
		cache:    cacheRepo,
		cacheTTL: cacheTTL,
		logger:   log.Named("StoreUsecase"),
	}
}

// RegisterStore creates a storefront owned by the actor. Registering the
// same company name at the same location again folds into a new branch of
// the existing store instead of a duplicate document.
func (uc *StoreUsecase) RegisterStore(ctx context.Context, actor domain.Actor, in StoreInput) (*RegisterResult, error) {
	if actor.Role == domain.RoleCustomer {
		return nil, fmt.Errorf("%w: only store owners can register stores", domain.ErrForbidden)
	}
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Location = strings.TrimSpace(in.Location)
	if in.CompanyName == "" {
		return nil, fmt.Errorf("%w: company name cannot be empty", domain.ErrInvalidInput)
	}
	if in.Location == "" {
		return nil, fmt.Errorf("%w: location cannot be empty", domain.ErrInvalidInput)
	}

	existing, err := uc.repo.FindStoreByNameAndLocation(ctx, in.CompanyName, in.Location)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		branchID := uuid.NewString()
		if err := uc.repo.AddBranch(ctx, existing.ID, branchID); err != nil {
			return nil, err
		}
		uc.invalidate(ctx, existing.ID)
		uc.logger.Info("Registration folded into existing store",
			zap.String("store_id", existing.ID),
			zap.String("branch_id", branchID),
			zap.String("company_name", in.CompanyName),
		)
		return &RegisterResult{StoreID: existing.ID, BranchID: branchID, Merged: true}, nil
	}

	branchID := uuid.NewString()
	store := &domain.Store{
		CompanyName: in.CompanyName,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    in.Location,
		WorkType:    strings.TrimSpace(in.WorkType),
		Branches:    []string{branchID},
		Owner:       actor.ID,
		Managers:    in.Managers,
		Reviews:     []domain.Review{},
		CreatedAt:   time.Now().UTC(),
	}
	if store.Managers == nil {
		store.Managers = []string{}
	}

	storeID, err := uc.repo.InsertStore(ctx, store)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("Store registered",
		zap.String("store_id", storeID),
		zap.String("company_name", in.CompanyName),
		zap.String("owner", actor.ID),
	)
	return &RegisterResult{StoreID: storeID, BranchID: branchID}, nil
}

// GetStore returns a store and counts the view. Reads are served through the
// cache when possible; the views counter is incremented on every call so
// cached reads still count. The Views value in a cached response lags the
// stored counter by up to the cache TTL; it catches up on the next cache
// miss or invalidation.
func (uc *StoreUsecase) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	if err := uc.repo.IncrementViews(ctx, storeID); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, storeCacheKey(storeID)); err == nil {
			var store domain.Store
			if err := json.Unmarshal(data, &store); err == nil {
				uc.logger.Debug("Store served from cache", zap.String("store_id", storeID))
				return &store, nil
			}
			uc.logger.Warn("Discarding undecodable cache entry", zap.String("store_id", storeID))
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			uc.logger.Warn("Store cache read failed", zap.String("store_id", storeID), zap.Error(err))
		}
	}

	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := json.Marshal(store); err == nil {
			if err := uc.cache.Set(ctx, storeCacheKey(storeID), data, uc.cacheTTL); err != nil {
				uc.logger.Warn("Store cache write failed", zap.String("store_id", storeID), zap.Error(err))
			}
		}
	}
	return store, nil
}

// ListStores returns one page of the catalog. Sort is one of rating, newest,
// oldest, nameAsc, nameDesc; anything else falls back to newest.
func (uc *StoreUsecase) ListStores(ctx context.Context, page, limit int, sort string) (*StorePage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput)
	}
	switch sort {
	case "rating", "newest", "oldest", "nameAsc", "nameDesc":
	default:
		sort = "newest"
	}

	stores, total, err := uc.repo.ListStores(ctx, domain.StoreFilter{Page: page, Limit: limit, Sort: sort})
	if err != nil {
		return nil, err
	}
	return &StorePage{
		Stores:     stores,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pagination.TotalPages(int(total), limit),
	}, nil
}

// UpdateStore edits the store profile. Only the owner may update a store.
func (uc *StoreUsecase) UpdateStore(ctx context.Context, actor domain.Actor, storeID string, upd StoreUpdate) (*domain.Store, error) {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if actor.ID != store.Owner {
		return nil, fmt.Errorf("%w: only the store owner can update this store", domain.ErrForbidden)
	}

	fields := map[string]interface{}{}
	if upd.Title != nil {
		fields["title"] = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		fields["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.WorkType != nil {
		fields["work_type"] = strings.TrimSpace(*upd.WorkType)
	}
	if upd.Managers != nil {
		fields["managers"] = *upd.Managers
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	fields["updated_at"] = time.Now().UTC()

	if err := uc.repo.UpdateStoreFields(ctx, storeID, fields); err != nil {
		return nil, err
	}
	uc.invalidate(ctx, storeID)
	return uc.repo.GetStore(ctx, storeID)
}

// DeleteStore removes a store document. Reviews and their replies are
// embedded in the document and die with it. Owner or admin only.
func (uc *StoreUsecase) DeleteStore(ctx context.Context, actor domain.Actor, storeID string) error {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	if actor.ID != store.Owner && actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: only the store owner or an admin can delete this store", domain.ErrForbidden)
	}

	if err := uc.repo.DeleteStore(ctx, storeID); err != nil {
		return err
	}
	uc.invalidate(ctx, storeID)
	uc.logger.Info("Store deleted", zap.String("store_id", storeID), zap.String("actor_id", actor.ID))
	return nil
}

// DeleteBranch removes one branch. Removing the last branch deletes the
// store itself. Owner only.
func (uc *StoreUsecase) DeleteBranch(ctx context.Context, actor domain.Actor, storeID, branchID string) error {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	if actor.ID != store.Owner {
		return fmt.Errorf("%w: only the store owner can remove branches", domain.ErrForbidden)
	}

	found := false
	for _, b := range store.Branches {
		if b == branchID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: branch %s", domain.ErrNotFound, branchID)
	}

	if len(store.Branches) == 1 {
		if err := uc.repo.DeleteStore(ctx, storeID); err != nil {
			return err
		}
		uc.invalidate(ctx, storeID)
		uc.logger.Info("Last branch removed, store deleted",
			zap.String("store_id", storeID),
			zap.String("branch_id", branchID),
		)
		return nil
	}

	if err := uc.repo.RemoveBranch(ctx, storeID, branchID); err != nil {
		return err
	}
	uc.invalidate(ctx, storeID)
	return nil
}

func (uc *StoreUsecase) invalidate(ctx context.Context, storeID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, storeCacheKey(storeID)); err != nil {
		uc.logger.Warn("Failed to invalidate store cache", zap.String("store_id", storeID), zap.Error(err))
	}
}
