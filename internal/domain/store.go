package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- Domain Specific Errors ---

var (
	// ErrNotFound indicates that a store, review or reply does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrForbidden indicates that the actor is not authorized to perform the action.
	ErrForbidden = errors.New("action forbidden")
	// ErrInvalidInput indicates that the provided input data is invalid.
	ErrInvalidInput = errors.New("invalid input data")
	// ErrAlreadyReviewed indicates that the actor already has a review on the store.
	ErrAlreadyReviewed = errors.New("store already reviewed by this user")
	// ErrStorageUnavailable indicates that the document store could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// --- Roles ---

// Role is the verified role carried by an authenticated actor.
// It is always resolved from credentials, never from request payloads.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleStoreOwner Role = "store_owner"
	RoleAdmin      Role = "admin"
)

// ParseRole maps a claim string onto the closed role set. Unknown values
// degrade to customer, the least privileged role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleStoreOwner:
		return RoleStoreOwner
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// IsStoreStaff reports whether the actor's identity is the store owner or a
// member of its manager set.
func (a Actor) IsStoreStaff(owner string, managers []string) bool {
	if a.ID == "" {
		return false
	}
	if a.ID == owner {
		return true
	}
	for _, m := range managers {
		if a.ID == m {
			return true
		}
	}
	return false
}

// --- Entities ---

// Store is the aggregate root. Reviews are embedded in insertion order and
// own their replies; both are removed with the store document.
type Store struct {
	ID            string
	CompanyName   string
	Title         string
	Description   string
	Location      string
	WorkType      string
	Branches      []string
	Owner         string
	Managers      []string
	Views         int64
	AverageRating float64
	ReviewCount   int
	Reviews       []Review
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// FindReview returns the embedded review with the given id, or nil.
func (s *Store) FindReview(reviewID string) *Review {
	for i := range s.Reviews {
		if s.Reviews[i].ReviewID == reviewID {
			return &s.Reviews[i]
		}
	}
	return nil
}

// Review is one customer's rating and comment for a store.
type Review struct {
	ReviewID  string
	User      string
	Rating    float64
	Comment   string
	CreatedAt time.Time
	UpdatedAt *time.Time
	Replies   []Reply
}

// FindReply returns the embedded reply with the given id, or nil.
func (r *Review) FindReply(replyID string) *Reply {
	for i := range r.Replies {
		if r.Replies[i].ReplyID == replyID {
			return &r.Replies[i]
		}
	}
	return nil
}

// Reply is a staff response attached to a single review. IsAdmin records the
// verified role the reply was posted under and is fixed at creation time.
type Reply struct {
	ReplyID   string
	User      string
	Text      string
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsAdmin   bool
}

// NewReview validates the input and builds a review with a fresh opaque id
// and an empty reply list.
func NewReview(user string, rating float64, comment string) (*Review, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: review author cannot be empty", ErrInvalidInput)
	}
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, fmt.Errorf("%w: comment cannot be empty", ErrInvalidInput)
	}
	return &Review{
		ReviewID:  uuid.NewString(),
		User:      user,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
		Replies:   []Reply{},
	}, nil
}

// NewReply validates the input and builds a reply. isAdmin must come from the
// actor's verified role, never from the request body.
func NewReply(user, text string, isAdmin bool) (*Reply, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: reply author cannot be empty", ErrInvalidInput)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: reply text cannot be empty", ErrInvalidInput)
	}
	return &Reply{
		ReplyID:   uuid.NewString(),
		User:      user,
		Text:      text,
		CreatedAt: time.Now().UTC(),
		IsAdmin:   isAdmin,
	}, nil
}

// ValidateRating checks the 1..5 inclusive rating scale.
func ValidateRating(rating float64) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	return nil
}

// RatingAggregate derives the denormalized aggregate from the full review
// list. It is always recomputed from scratch, never patched incrementally,
// so any review-count-changing operation self-heals the cached values.
func RatingAggregate(reviews []Review) (average float64, count int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	var total float64
	for i := range reviews {
		total += reviews[i].Rating
	}
	average = math.Round(total/float64(len(reviews))*10) / 10
	return average, len(reviews)
}
