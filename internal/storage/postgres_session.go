package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

// --- Session Repository Methods ---

// FindSessionByToken resolves a bearer token to a session row. This runs in
// the auth middleware before any tenant is attached to the context, so it is
// the one repository method without a tenant guard.
func (r *PostgresRepo) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty session token", apperrors.ErrUnauthorized)
	}

	var session model.Session
	operation := func() error {
		result := r.db.WithContext(ctx).Where("token = ?", token).First(&session)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindSessionByToken", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find session by token after retries", zap.Error(findErr))
		return nil, findErr
	}
	return &session, nil
}
