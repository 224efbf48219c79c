package policy

import (
	"testing"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

const (
	ownerID    = "owner-1"
	managerID  = "manager-1"
	customerID = "customer-1"
	adminID    = "admin-1"
	otherID    = "stranger-1"
)

var managers = []string{managerID}

func TestEvaluate_AddReview(t *testing.T) {
	tests := []struct {
		name           string
		actor          domain.Actor
		actorHasReview bool
		wantAllowed    bool
		wantErr        error
	}{
		{"customer first review", domain.Actor{ID: customerID, Role: domain.RoleCustomer}, false, true, nil},
		{"store owner first review", domain.Actor{ID: otherID, Role: domain.RoleStoreOwner}, false, true, nil},
		{"customer duplicate review", domain.Actor{ID: customerID, Role: domain.RoleCustomer}, true, false, domain.ErrAlreadyReviewed},
		{"admin never reviews", domain.Actor{ID: adminID, Role: domain.RoleAdmin}, false, false, domain.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(Input{
				Op:             OpAddReview,
				Actor:          tt.actor,
				StoreOwner:     ownerID,
				Managers:       managers,
				ActorHasReview: tt.actorHasReview,
			})
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			if !tt.wantAllowed {
				assert.ErrorIs(t, d.Err, tt.wantErr)
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestEvaluate_EditReview(t *testing.T) {
	author := customerID
	tests := []struct {
		name        string
		actor       domain.Actor
		wantAllowed bool
	}{
		{"author edits own review", domain.Actor{ID: author, Role: domain.RoleCustomer}, true},
		{"other customer denied", domain.Actor{ID: otherID, Role: domain.RoleCustomer}, false},
		{"store owner denied", domain.Actor{ID: ownerID, Role: domain.RoleStoreOwner}, false},
		{"manager denied", domain.Actor{ID: managerID, Role: domain.RoleStoreOwner}, false},
		{"admin allowed", domain.Actor{ID: adminID, Role: domain.RoleAdmin}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(Input{
				Op:             OpEditReview,
				Actor:          tt.actor,
				StoreOwner:     ownerID,
				Managers:       managers,
				ResourceAuthor: author,
			})
			assert.Equal(t, tt.wantAllowed, d.Allowed)
		})
	}
}

func TestEvaluate_DeleteReview(t *testing.T) {
	author := customerID
	tests := []struct {
		name        string
		actor       domain.Actor
		wantAllowed bool
	}{
		{"author customer denied", domain.Actor{ID: author, Role: domain.RoleCustomer}, false},
		{"unrelated customer denied", domain.Actor{ID: otherID, Role: domain.RoleCustomer}, false},
		{"owning store_owner allowed", domain.Actor{ID: ownerID, Role: domain.RoleStoreOwner}, true},
		{"manager with store_owner role allowed", domain.Actor{ID: managerID, Role: domain.RoleStoreOwner}, true},
		{"unrelated store_owner denied", domain.Actor{ID: otherID, Role: domain.RoleStoreOwner}, false},
		{"admin allowed", domain.Actor{ID: adminID, Role: domain.RoleAdmin}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(Input{
				Op:             OpDeleteReview,
				Actor:          tt.actor,
				StoreOwner:     ownerID,
				Managers:       managers,
				ResourceAuthor: author,
			})
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			if !tt.wantAllowed {
				assert.ErrorIs(t, d.Err, domain.ErrForbidden)
			}
		})
	}
}

func TestEvaluate_AddReply(t *testing.T) {
	tests := []struct {
		name        string
		actor       domain.Actor
		wantAllowed bool
	}{
		{"customer denied", domain.Actor{ID: customerID, Role: domain.RoleCustomer}, false},
		{"review author denied", domain.Actor{ID: customerID, Role: domain.RoleCustomer}, false},
		{"store owner allowed", domain.Actor{ID: ownerID, Role: domain.RoleStoreOwner}, true},
		{"manager allowed", domain.Actor{ID: managerID, Role: domain.RoleStoreOwner}, true},
		{"unrelated store_owner denied", domain.Actor{ID: otherID, Role: domain.RoleStoreOwner}, false},
		{"admin allowed", domain.Actor{ID: adminID, Role: domain.RoleAdmin}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(Input{
				Op:         OpAddReply,
				Actor:      tt.actor,
				StoreOwner: ownerID,
				Managers:   managers,
			})
			assert.Equal(t, tt.wantAllowed, d.Allowed)
		})
	}
}

func TestEvaluate_EditAndDeleteReply(t *testing.T) {
	replyAuthor := ownerID
	for _, op := range []Operation{OpEditReply, OpDeleteReply} {
		tests := []struct {
			name        string
			actor       domain.Actor
			wantAllowed bool
		}{
			{"reply author owner allowed", domain.Actor{ID: ownerID, Role: domain.RoleStoreOwner}, true},
			{"manager not author denied", domain.Actor{ID: managerID, Role: domain.RoleStoreOwner}, false},
			{"customer denied", domain.Actor{ID: customerID, Role: domain.RoleCustomer}, false},
			{"admin not author allowed", domain.Actor{ID: adminID, Role: domain.RoleAdmin}, true},
		}
		for _, tt := range tests {
			t.Run(op.String()+"/"+tt.name, func(t *testing.T) {
				d := Evaluate(Input{
					Op:             op,
					Actor:          tt.actor,
					StoreOwner:     ownerID,
					Managers:       managers,
					ResourceAuthor: replyAuthor,
				})
				assert.Equal(t, tt.wantAllowed, d.Allowed)
			})
		}
	}
}

func TestEvaluate_DenialsCarryReasons(t *testing.T) {
	d := Evaluate(Input{
		Op:             OpEditReview,
		Actor:          domain.Actor{ID: otherID, Role: domain.RoleCustomer},
		StoreOwner:     ownerID,
		ResourceAuthor: customerID,
	})
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "author")

	d = Evaluate(Input{
		Op:         OpDeleteReview,
		Actor:      domain.Actor{ID: customerID, Role: domain.RoleCustomer},
		StoreOwner: ownerID,
	})
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "customers")
}
