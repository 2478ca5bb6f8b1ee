package session

import (
	"context"
	"fmt"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/utils"
)

// Identity is the resolved tenant and user behind a bearer token.
type Identity struct {
	CompanyID string
	UserID    string
}

// Verifier resolves bearer tokens to identities.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// DBVerifier looks tokens up in the sessions table. Token issuance lives in
// the dashboard's auth service; this side only resolves and checks expiry.
type DBVerifier struct {
	sessions storage.SessionRepo
}

// NewDBVerifier creates a database-backed session verifier.
func NewDBVerifier(sessions storage.SessionRepo) *DBVerifier {
	return &DBVerifier{sessions: sessions}
}

// Verify resolves a token. Unknown and expired tokens both come back as
// ErrUnauthorized so the HTTP layer cannot leak which case occurred.
func (v *DBVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing session token", apperrors.ErrUnauthorized)
	}

	session, err := v.sessions.FindByToken(ctx, token)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: unknown session token", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	if session.Expired(utils.Now()) {
		return nil, fmt.Errorf("%w: session expired", apperrors.ErrUnauthorized)
	}

	return &Identity{CompanyID: session.CompanyID, UserID: session.UserID}, nil
}

var _ Verifier = (*DBVerifier)(nil)
