// Package policy decides which actors may run which review and reply
// operations on a store. It is a pure function of the actor, the store's
// staff set and the resource author; it performs no I/O.
package policy

import (
	"github.com/clothingstore/catalog-service/internal/domain"
)

// Operation enumerates the mutations the evaluator covers.
type Operation int

const (
	OpAddReview Operation = iota
	OpEditReview
	OpDeleteReview
	OpAddReply
	OpEditReply
	OpDeleteReply
)

func (op Operation) String() string {
	switch op {
	case OpAddReview:
		return "add_review"
	case OpEditReview:
		return "edit_review"
	case OpDeleteReview:
		return "delete_review"
	case OpAddReply:
		return "add_reply"
	case OpEditReply:
		return "edit_reply"
	case OpDeleteReply:
		return "delete_reply"
	}
	return "unknown"
}

// Input is everything a decision depends on.
type Input struct {
	Op         Operation
	Actor      domain.Actor
	StoreOwner string
	Managers   []string
	// ResourceAuthor is the review author for review operations and the
	// reply author for reply operations. Empty for OpAddReview/OpAddReply.
	ResourceAuthor string
	// ActorHasReview is the precomputed "author already reviewed this
	// store" fact, consulted only for OpAddReview.
	ActorHasReview bool
}

// Decision is an allow/deny verdict with a human-readable reason. Err is the
// domain error kind a denial maps to.
type Decision struct {
	Allowed bool
	Reason  string
	Err     error
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(err error, reason string) Decision {
	return Decision{Allowed: false, Reason: reason, Err: err}
}

// rule is one row of the authorization matrix. The first rule whose match
// returns true decides; later rules are not consulted.
type rule struct {
	match  func(Input) bool
	decide func(Input) Decision
}

var rules = []rule{
	// Admins may do everything except post reviews: reviewing is a
	// customer action, replies and deletes are staff actions.
	{
		match: func(in Input) bool { return in.Actor.Role == domain.RoleAdmin },
		decide: func(in Input) Decision {
			if in.Op == OpAddReview {
				return deny(domain.ErrForbidden, "admins do not post reviews")
			}
			return allow()
		},
	},
	// Any authenticated non-admin may add a review, once per store.
	{
		match: func(in Input) bool { return in.Op == OpAddReview },
		decide: func(in Input) Decision {
			if in.ActorHasReview {
				return deny(domain.ErrAlreadyReviewed, "you have already reviewed this store, edit your existing review instead")
			}
			return allow()
		},
	},
	// A review may only be edited by its author.
	{
		match: func(in Input) bool { return in.Op == OpEditReview },
		decide: func(in Input) Decision {
			if in.Actor.ID == in.ResourceAuthor {
				return allow()
			}
			return deny(domain.ErrForbidden, "only the review author can edit this review")
		},
	},
	// Customers never delete reviews, not even their own; staff of the
	// store may retract any review.
	{
		match: func(in Input) bool { return in.Op == OpDeleteReview },
		decide: func(in Input) Decision {
			if in.Actor.Role == domain.RoleCustomer {
				return deny(domain.ErrForbidden, "customers are not permitted to delete reviews, edit your review instead")
			}
			if in.Actor.Role == domain.RoleStoreOwner && in.Actor.IsStoreStaff(in.StoreOwner, in.Managers) {
				return allow()
			}
			return deny(domain.ErrForbidden, "not an owner or manager of this store")
		},
	},
	// Replies are an official response channel: staff of the store only.
	{
		match: func(in Input) bool { return in.Op == OpAddReply },
		decide: func(in Input) Decision {
			if in.Actor.IsStoreStaff(in.StoreOwner, in.Managers) {
				return allow()
			}
			return deny(domain.ErrForbidden, "only the store owner or an admin can reply to reviews")
		},
	},
	// Non-admin staff may only manage replies they authored.
	{
		match: func(in Input) bool { return in.Op == OpEditReply || in.Op == OpDeleteReply },
		decide: func(in Input) Decision {
			if !in.Actor.IsStoreStaff(in.StoreOwner, in.Managers) {
				return deny(domain.ErrForbidden, "only the store owner or an admin can manage replies")
			}
			if in.Actor.ID != in.ResourceAuthor {
				return deny(domain.ErrForbidden, "only the reply author can modify this reply")
			}
			return allow()
		},
	},
}

// Evaluate runs the matrix and returns the first matching rule's verdict.
func Evaluate(in Input) Decision {
	for _, r := range rules {
		if r.match(in) {
			return r.decide(in)
		}
	}
	return deny(domain.ErrForbidden, "operation not permitted")
}
