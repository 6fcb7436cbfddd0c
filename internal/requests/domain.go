// Package requests models a user's ask for a higher permission level on an
// account and the owner-mediated workflow that resolves it.
package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/shared"
)

// Status is the workflow state of a request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusDenied    Status = "DENIED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// ParseStatus parses an optional status filter value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if raw == "" || s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q: %w", raw, shared.ErrInvalidRequest)
}

// Request is a permission request.
type Request struct {
	ID             int64             `json:"id"`
	AccountID      int64             `json:"account_id"`
	RequesterID    int64             `json:"requester_id"`
	RequestedLevel permissions.Level `json:"requested_level"`
	CurrentLevel   permissions.Level `json:"current_level"`
	Message        string            `json:"message,omitempty"`
	Status         Status            `json:"status"`
	ReviewerID     *int64            `json:"reviewer_id,omitempty"`
	ReviewMessage  string            `json:"review_message,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	ReviewedAt     *time.Time        `json:"reviewed_at,omitempty"`
}

// Approve moves a pending request to APPROVED.
func (r Request) Approve(reviewerID int64, message string, at time.Time) (Request, error) {
	return r.review(StatusApproved, reviewerID, message, at)
}

// Deny moves a pending request to DENIED.
func (r Request) Deny(reviewerID int64, message string, at time.Time) (Request, error) {
	return r.review(StatusDenied, reviewerID, message, at)
}

// Cancel moves a pending request to CANCELLED. Cancellation has no reviewer.
func (r Request) Cancel(at time.Time) (Request, error) {
	if r.Status != StatusPending {
		return Request{}, fmt.Errorf("requests: cancel request %d in status %s: %w", r.ID, r.Status, shared.ErrInvalidState)
	}
	r.Status = StatusCancelled
	ts := at.UTC()
	r.ReviewedAt = &ts
	return r, nil
}

func (r Request) review(next Status, reviewerID int64, message string, at time.Time) (Request, error) {
	if r.Status != StatusPending {
		return Request{}, fmt.Errorf("requests: %s request %d in status %s: %w", next, r.ID, r.Status, shared.ErrInvalidState)
	}
	r.Status = next
	reviewer := reviewerID
	r.ReviewerID = &reviewer
	r.ReviewMessage = message
	ts := at.UTC()
	r.ReviewedAt = &ts
	return r, nil
}

// ListFilter narrows a request listing. Zero fields are ignored.
type ListFilter struct {
	AccountID   int64
	RequesterID int64
	ReviewerID  int64
	// OwnerID restricts to requests on accounts owned by the user.
	OwnerID int64
	Status  Status
	From    time.Time
	To      time.Time
	Page    shared.PageRequest
}

// Store persists requests.
type Store interface {
	Get(ctx context.Context, id int64) (Request, error)
	// GetForUpdate loads the request and locks it until the unit of work ends.
	GetForUpdate(ctx context.Context, id int64) (Request, error)
	// FindPending returns the pending request for the pair, or shared.ErrNotFound.
	FindPending(ctx context.Context, accountID, requesterID int64) (Request, error)
	// Insert fails with shared.ErrDuplicateRequest when the pair already has a pending request.
	Insert(ctx context.Context, r Request) (Request, error)
	// Update persists a transition out of PENDING; shared.ErrInvalidState when the
	// stored row is no longer pending.
	Update(ctx context.Context, r Request) error
	// List returns up to Page.Limit() rows ordered newest first.
	List(ctx context.Context, filter ListFilter) ([]Request, error)
}
