package domain

import (
	"context"
	"time"
)

// StoreFilter holds parameters for listing stores.
type StoreFilter struct {
	Page  int
	Limit int
	// Sort is one of: rating, newest, oldest, nameAsc, nameDesc.
	Sort string
}

// ReviewPatch carries the optional fields of a review edit. Nil means the
// field is left untouched.
type ReviewPatch struct {
	Comment   *string
	Rating    *float64
	UpdatedAt time.Time
}

// StoreRepository is the document store adapter. Implementations must map
// missing documents to ErrNotFound and connectivity failures to
// ErrStorageUnavailable.
//
// Every targeted mutation addresses reviews and replies by their opaque ids,
// never by positional index from a prior read, so a concurrent removal
// elsewhere in the same array cannot corrupt an unrelated element.
type StoreRepository interface {
	InsertStore(ctx context.Context, store *Store) (string, error)
	GetStore(ctx context.Context, storeID string) (*Store, error)
	FindStoreByNameAndLocation(ctx context.Context, companyName, location string) (*Store, error)
	ListStores(ctx context.Context, filter StoreFilter) ([]*Store, int64, error)
	UpdateStoreFields(ctx context.Context, storeID string, fields map[string]interface{}) error
	DeleteStore(ctx context.Context, storeID string) error
	AddBranch(ctx context.Context, storeID, branchID string) error
	RemoveBranch(ctx context.Context, storeID, branchID string) error
	IncrementViews(ctx context.Context, storeID string) error

	// AppendReviewIfAbsent atomically appends the review unless the author
	// already has one on the store. There is no intervening read: the
	// uniqueness condition is part of the write's filter, so concurrent
	// duplicates lose with ErrAlreadyReviewed.
	AppendReviewIfAbsent(ctx context.Context, storeID string, review *Review) error
	UpdateReviewFields(ctx context.Context, storeID, reviewID string, patch ReviewPatch) error
	RemoveReview(ctx context.Context, storeID, reviewID string) error

	AppendReply(ctx context.Context, storeID, reviewID string, reply *Reply) error
	UpdateReplyText(ctx context.Context, storeID, reviewID, replyID, text string, updatedAt time.Time) error
	RemoveReply(ctx context.Context, storeID, reviewID, replyID string) error

	SetRatingAggregate(ctx context.Context, storeID string, average float64, count int) error
}

// ReplyCreatedEvent is emitted after a reply is posted. Delivery is best
// effort and never affects the reply-creation result.
type ReplyCreatedEvent struct {
	Recipient  string `json:"recipient"`
	StoreID    string `json:"store_id"`
	ReviewID   string `json:"review_id"`
	ReplyID    string `json:"reply_id"`
	AuthorRole Role   `json:"author_role"`
}
