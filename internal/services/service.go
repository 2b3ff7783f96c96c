package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"github.com/yukikurage/multitenant-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	validate = newValidator()
	timeNow  = time.Now
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(apierrors.JSONFieldName)
	return v
}

// validateInput runs struct tag validation on a service input
func validateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return apierrors.FromValidator(err)
	}
	return nil
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFoundError and wraps anything else
func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NotFound(resource + " not found")
	}
	return fmt.Errorf("failed to load %s: %w", resource, err)
}

// conflictOr maps a translated duplicate key error to a ConflictError
func conflictOr(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierrors.Conflict(message)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// uniqueSlug returns base when free, else the first free "base-N"
func uniqueSlug(ctx context.Context, tenants repository.TenantRepository, base, excludeID string) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		exists, err := tenants.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		if n > constants.MaxSlugSuffix {
			return "", apierrors.Conflict("could not find a free slug for " + base)
		}
		candidate = utils.SuffixedSlug(base, n)
	}
}

func stringPtr(s string) *string {
	return &s
}
