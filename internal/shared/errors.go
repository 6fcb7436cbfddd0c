package shared

import "errors"

var (
	// ErrNotFound indicates the referenced account, grant or request does not exist,
	// or that the caller is not allowed to learn that it does.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller lacks the relationship the operation needs.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState indicates a workflow precondition was violated.
	ErrInvalidState = errors.New("invalid state")
	// ErrDuplicateRequest occurs when a second pending request is submitted for the same account and requester.
	ErrDuplicateRequest = errors.New("duplicate pending request")
	// ErrDuplicateGrant occurs when a plain insert collides with an existing grant.
	ErrDuplicateGrant = errors.New("duplicate grant")
	// ErrInvalidRequest indicates semantically nonsensical input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEvaluationUnavailable indicates the permission store could not be consulted.
	ErrEvaluationUnavailable = errors.New("access evaluation unavailable")
	// ErrAuditWriteDegraded signals an audit entry was written without its payload or not at all.
	ErrAuditWriteDegraded = errors.New("audit write degraded")
	// ErrUnauthenticated occurs when no actor could be resolved for the request.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// UserSafeMessage returns the caller-facing message for err without internal detail.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return "The requested resource was not found."
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to perform this action."
	case errors.Is(err, ErrDuplicateRequest):
		return "A pending request already exists for this account."
	case errors.Is(err, ErrDuplicateGrant):
		return "A permission already exists for this user."
	case errors.Is(err, ErrInvalidState):
		return "The request is no longer in a state that allows this action."
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required."
	case errors.Is(err, ErrEvaluationUnavailable):
		return "Permissions could not be checked right now. Try again later."
	default:
		return "An unexpected error occurred."
	}
}
