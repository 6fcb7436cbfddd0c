package sharing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/shared"
)

type grantBody struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Level  string `json:"level" validate:"required,oneof=VIEW_ONLY TRANSACTION_ONLY FULL_ACCESS"`
}

type levelBody struct {
	Level string `json:"level" validate:"required,oneof=VIEW_ONLY TRANSACTION_ONLY FULL_ACCESS"`
}

type sharingBody struct {
	Shared *bool `json:"shared" validate:"required"`
}

type createRequestBody struct {
	Level   string `json:"level" validate:"required,oneof=VIEW_ONLY TRANSACTION_ONLY FULL_ACCESS"`
	Message string `json:"message" validate:"max=500"`
}

type reviewBody struct {
	Message string `json:"message" validate:"max=500"`
}

// validationError turns validator failures into a caller-facing InvalidRequest.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid body: %w", shared.ErrInvalidRequest)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", jsonFieldName(fieldErr.Field()), fieldErr.Tag()))
	}
	return fmt.Errorf("%s: %w", strings.Join(problems, "; "), shared.ErrInvalidRequest)
}

// levelFrom parses a level field that already passed validation.
func levelFrom(raw string) (permissions.Level, error) {
	level, err := permissions.ParseLevel(raw)
	if err != nil {
		return permissions.LevelNone, fmt.Errorf("level %q is not one of VIEW_ONLY, TRANSACTION_ONLY, FULL_ACCESS: %w", raw, shared.ErrInvalidRequest)
	}
	return level, nil
}

func jsonFieldName(field string) string {
	switch field {
	case "UserID":
		return "user_id"
	default:
		return strings.ToLower(field)
	}
}
