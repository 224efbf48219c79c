package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/clothingstore/catalog-service/internal/pagination"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/clothingstore/catalog-service/internal/platform/metrics"
	"github.com/clothingstore/catalog-service/internal/policy"
	"github.com/clothingstore/catalog-service/internal/port/cache"
	"go.uber.org/zap"
)

// ReplyNotifier publishes the reply-created event. Delivery is best effort:
// the usecase logs publish failures and never fails the operation over them.
type ReplyNotifier interface {
	PublishReplyCreated(ctx context.Context, event *domain.ReplyCreatedEvent) error
}

// ReviewPage is one page of a store's reviews in insertion order.
type ReviewPage struct {
	Reviews    []domain.Review
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ReviewInput is the payload for posting a new review.
type ReviewInput struct {
	Rating  float64
	Comment string
}

// ReviewUpdate carries the optional fields of a review edit.
type ReviewUpdate struct {
	Rating  *float64
	Comment *string
}

// ReviewUsecase implements the review and reply operations on a store.
type ReviewUsecase struct {
	repo     domain.StoreRepository
	notifier ReplyNotifier
	cache    cache.Repository
	metrics  *metrics.Manager
	logger   *logger.Logger
}

// NewReviewUsecase wires the review usecase. notifier and cacheRepo may be
// nil; the usecase then skips event publishing and cache invalidation.
func NewReviewUsecase(
	repo domain.StoreRepository,
	notifier ReplyNotifier,
	cacheRepo cache.Repository,
	m *metrics.Manager,
	log *logger.Logger,
) *ReviewUsecase {
	return &ReviewUsecase{
		repo:     repo,
		notifier: notifier,
		cache:    cacheRepo,
		metrics:  m,
		logger:   log.Named("ReviewUsecase"),
	}
}

func storeCacheKey(storeID string) string {
	return "store:" + storeID
}

// AddReview posts a new review to a store on behalf of the actor. Each
// author gets at most one review per store; the uniqueness condition is part
// of the repository write, so concurrent duplicates lose cleanly.
func (uc *ReviewUsecase) AddReview(ctx context.Context, actor domain.Actor, storeID string, in ReviewInput) (*domain.Review, error) {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	d := policy.Evaluate(policy.Input{
		Op:             policy.OpAddReview,
		Actor:          actor,
		StoreOwner:     store.Owner,
		Managers:       store.Managers,
		ActorHasReview: hasReviewBy(store, actor.ID),
	})
	if !d.Allowed {
		uc.logger.Info("Review rejected by policy",
			zap.String("store_id", storeID),
			zap.String("actor_id", actor.ID),
			zap.String("reason", d.Reason),
		)
		return nil, fmt.Errorf("%w: %s", d.Err, d.Reason)
	}

	review, err := domain.NewReview(actor.ID, in.Rating, in.Comment)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.AppendReviewIfAbsent(ctx, storeID, review); err != nil {
		return nil, err
	}

	if err := uc.refreshRating(ctx, storeID); err != nil {
		return nil, err
	}
	uc.invalidateStoreCache(ctx, storeID)
	uc.metrics.ReviewsCreatedTotal.Inc()

	uc.logger.Info("Review created",
		zap.String("store_id", storeID),
		zap.String("review_id", review.ReviewID),
		zap.String("author", actor.ID),
	)
	return review, nil
}

// EditReview updates the comment and/or rating of the actor's own review.
// The rating aggregate is recomputed only when the rating actually changed.
func (uc *ReviewUsecase) EditReview(ctx context.Context, actor domain.Actor, storeID, reviewID string, upd ReviewUpdate) (*domain.Review, error) {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	review := store.FindReview(reviewID)
	if review == nil {
		return nil, fmt.Errorf("%w: review %s", domain.ErrNotFound, reviewID)
	}

	d := policy.Evaluate(policy.Input{
		Op:             policy.OpEditReview,
		Actor:          actor,
		StoreOwner:     store.Owner,
		Managers:       store.Managers,
		ResourceAuthor: review.User,
	})
	if !d.Allowed {
		return nil, fmt.Errorf("%w: %s", d.Err, d.Reason)
	}

	patch, ratingChanged, err := buildReviewPatch(review, upd)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateReviewFields(ctx, storeID, reviewID, patch); err != nil {
		return nil, err
	}

	if ratingChanged {
		if err := uc.refreshRating(ctx, storeID); err != nil {
			return nil, err
		}
	}
	uc.invalidateStoreCache(ctx, storeID)
	uc.metrics.ReviewUpdatesTotal.Inc()

	updatedStore, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	updated := updatedStore.FindReview(reviewID)
	if updated == nil {
		return nil, fmt.Errorf("%w: review %s", domain.ErrNotFound, reviewID)
	}
	return updated, nil
}

// DeleteReview removes a review together with its replies and recomputes the
// store's rating aggregate. Customers cannot delete reviews, not even their
// own.
func (uc *ReviewUsecase) DeleteReview(ctx context.Context, actor domain.Actor, storeID, reviewID string) error {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	review := store.FindReview(reviewID)
	if review == nil {
		return fmt.Errorf("%w: review %s", domain.ErrNotFound, reviewID)
	}

	d := policy.Evaluate(policy.Input{
		Op:             policy.OpDeleteReview,
		Actor:          actor,
		StoreOwner:     store.Owner,
		Managers:       store.Managers,
		ResourceAuthor: review.User,
	})
	if !d.Allowed {
		return fmt.Errorf("%w: %s", d.Err, d.Reason)
	}

	if err := uc.repo.RemoveReview(ctx, storeID, reviewID); err != nil {
		return err
	}

	if err := uc.refreshRating(ctx, storeID); err != nil {
		return err
	}
	uc.invalidateStoreCache(ctx, storeID)
	uc.metrics.ReviewDeletesTotal.Inc()

	uc.logger.Info("Review deleted",
		zap.String("store_id", storeID),
		zap.String("review_id", reviewID),
		zap.String("actor_id", actor.ID),
	)
	return nil
}

// AddReply posts a staff reply to a review. IsAdmin on the stored reply is
// derived from the actor's verified role, never from the request payload.
func (uc *ReviewUsecase) AddReply(ctx context.Context, actor domain.Actor, storeID, reviewID, text string) (*domain.Reply, error) {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	review := store.FindReview(reviewID)
	if review == nil {
		return nil, fmt.Errorf("%w: review %s", domain.ErrNotFound, reviewID)
	}

	d := policy.Evaluate(policy.Input{
		Op:         policy.OpAddReply,
		Actor:      actor,
		StoreOwner: store.Owner,
		Managers:   store.Managers,
	})
	if !d.Allowed {
		return nil, fmt.Errorf("%w: %s", d.Err, d.Reason)
	}

	reply, err := domain.NewReply(actor.ID, text, actor.Role == domain.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.AppendReply(ctx, storeID, reviewID, reply); err != nil {
		return nil, err
	}

	uc.invalidateStoreCache(ctx, storeID)
	uc.metrics.RepliesCreatedTotal.Inc()

	if uc.notifier != nil {
		event := &domain.ReplyCreatedEvent{
			Recipient:  review.User,
			StoreID:    storeID,
			ReviewID:   reviewID,
			ReplyID:    reply.ReplyID,
			AuthorRole: actor.Role,
		}
		if err := uc.notifier.PublishReplyCreated(ctx, event); err != nil {
			uc.logger.Error("Failed to publish reply-created event",
				zap.String("store_id", storeID),
				zap.String("review_id", reviewID),
				zap.Error(err),
			)
		}
	}

	uc.logger.Info("Reply created",
		zap.String("store_id", storeID),
		zap.String("review_id", reviewID),
		zap.String("reply_id", reply.ReplyID),
		zap.String("author", actor.ID),
	)
	return reply, nil
}

// EditReply updates the text of a reply. Non-admin staff may only edit
// replies they authored.
func (uc *ReviewUsecase) EditReply(ctx context.Context, actor domain.Actor, storeID, reviewID, replyID, text string) error {
	store, _, reply, err := uc.loadReply(ctx, storeID, reviewID, replyID)
	if err != nil {
		return err
	}

	d := policy.Evaluate(policy.Input{
		Op:             policy.OpEditReply,
		Actor:          actor,
		StoreOwner:     store.Owner,
		Managers:       store.Managers,
		ResourceAuthor: reply.User,
	})
	if !d.Allowed {
		return fmt.Errorf("%w: %s", d.Err, d.Reason)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: reply text cannot be empty", domain.ErrInvalidInput)
	}

	if err := uc.repo.UpdateReplyText(ctx, storeID, reviewID, replyID, text, time.Now().UTC()); err != nil {
		return err
	}
	uc.invalidateStoreCache(ctx, storeID)
	return nil
}

// DeleteReply removes a reply. Non-admin staff may only delete replies they
// authored.
func (uc *ReviewUsecase) DeleteReply(ctx context.Context, actor domain.Actor, storeID, reviewID, replyID string) error {
	store, _, reply, err := uc.loadReply(ctx, storeID, reviewID, replyID)
	if err != nil {
		return err
	}

	d := policy.Evaluate(policy.Input{
		Op:             policy.OpDeleteReply,
		Actor:          actor,
		StoreOwner:     store.Owner,
		Managers:       store.Managers,
		ResourceAuthor: reply.User,
	})
	if !d.Allowed {
		return fmt.Errorf("%w: %s", d.Err, d.Reason)
	}

	if err := uc.repo.RemoveReply(ctx, storeID, reviewID, replyID); err != nil {
		return err
	}
	uc.invalidateStoreCache(ctx, storeID)
	return nil
}

// ListReviews returns one page of a store's reviews, newest first. A page
// past the end is an empty page, not an error.
func (uc *ReviewUsecase) ListReviews(ctx context.Context, storeID string, page, limit int) (*ReviewPage, error) {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	reviews := make([]domain.Review, len(store.Reviews))
	copy(reviews, store.Reviews)
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})

	items, err := pagination.Page(reviews, page, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidLimit) {
			return nil, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput)
		}
		return nil, err
	}

	return &ReviewPage{
		Reviews:    items,
		Total:      len(store.Reviews),
		Page:       page,
		Limit:      limit,
		TotalPages: pagination.TotalPages(len(store.Reviews), limit),
	}, nil
}

// refreshRating recomputes the denormalized aggregate from a fresh read of
// the store taken after the mutation, so the derived values reflect whatever
// concurrent writers left behind.
func (uc *ReviewUsecase) refreshRating(ctx context.Context, storeID string) error {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	average, count := domain.RatingAggregate(store.Reviews)
	if err := uc.repo.SetRatingAggregate(ctx, storeID, average, count); err != nil {
		return err
	}
	uc.logger.Debug("Rating aggregate refreshed",
		zap.String("store_id", storeID),
		zap.Float64("average", average),
		zap.Int("count", count),
	)
	return nil
}

func (uc *ReviewUsecase) invalidateStoreCache(ctx context.Context, storeID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, storeCacheKey(storeID)); err != nil {
		uc.logger.Warn("Failed to invalidate store cache", zap.String("store_id", storeID), zap.Error(err))
	}
}

func (uc *ReviewUsecase) loadReply(ctx context.Context, storeID, reviewID, replyID string) (*domain.Store, *domain.Review, *domain.Reply, error) {
	store, err := uc.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, nil, nil, err
	}
	review := store.FindReview(reviewID)
	if review == nil {
		return nil, nil, nil, fmt.Errorf("%w: review %s", domain.ErrNotFound, reviewID)
	}
	reply := review.FindReply(replyID)
	if reply == nil {
		return nil, nil, nil, fmt.Errorf("%w: reply %s", domain.ErrNotFound, replyID)
	}
	return store, review, reply, nil
}

func hasReviewBy(store *domain.Store, userID string) bool {
	for i := range store.Reviews {
		if store.Reviews[i].User == userID {
			return true
		}
	}
	return false
}

// buildReviewPatch validates the edit payload against the current review and
// reports whether the rating value actually changes.
func buildReviewPatch(current *domain.Review, upd ReviewUpdate) (domain.ReviewPatch, bool, error) {
	if upd.Rating == nil && upd.Comment == nil {
		return domain.ReviewPatch{}, false, fmt.Errorf("%w: nothing to update, provide a comment and/or a rating", domain.ErrInvalidInput)
	}

	patch := domain.ReviewPatch{UpdatedAt: time.Now().UTC()}
	ratingChanged := false

	if upd.Rating != nil {
		if err := domain.ValidateRating(*upd.Rating); err != nil {
			return domain.ReviewPatch{}, false, err
		}
		patch.Rating = upd.Rating
		ratingChanged = *upd.Rating != current.Rating
	}
	if upd.Comment != nil {
		comment := strings.TrimSpace(*upd.Comment)
		if comment == "" {
			return domain.ReviewPatch{}, false, fmt.Errorf("%w: comment cannot be empty", domain.ErrInvalidInput)
		}
		patch.Comment = &comment
	}
	return patch, ratingChanged, nil
}
