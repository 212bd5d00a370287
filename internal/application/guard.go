package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

// Authorize validates a consent against a requested operation. Checks run in
// a fixed order and the first failure wins: existence, participant ownership,
// revocation, expiry, scope sufficiency, resource linkage. It performs no
// writes and must run before any cache or idempotency lookup so unauthorized
// callers never observe cached data or replayed results.
//
// resourceID may be empty for operations that are not resource-scoped.
func (s *Service) Authorize(ctx context.Context, consentID, participantID, requiredPermission, resourceID string) (domain.ConsentContext, error) {
	consent, err := s.consents.GetByID(ctx, consentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ConsentContext{}, fmt.Errorf("%w: Consent not found", domain.ErrNotFound)
		}
		return domain.ConsentContext{}, err
	}

	if consent.ParticipantID != participantID {
		return domain.ConsentContext{}, fmt.Errorf("%w: participant mismatch", domain.ErrForbidden)
	}

	now := s.nowFn()
	switch consent.StatusAt(now) {
	case domain.ConsentRevoked:
		return domain.ConsentContext{}, fmt.Errorf("%w: Consent Revoked", domain.ErrForbidden)
	case domain.ConsentExpired:
		return domain.ConsentContext{}, fmt.Errorf("%w: Consent expired", domain.ErrForbidden)
	case domain.ConsentAuthorized:
	default:
		return domain.ConsentContext{}, fmt.Errorf("%w: Consent not authorized", domain.ErrForbidden)
	}

	if !consent.HasScope(requiredPermission) {
		return domain.ConsentContext{}, fmt.Errorf("%w: missing scope: %s", domain.ErrForbidden, domain.NormalizeScope(requiredPermission))
	}

	if resourceID != "" && !consent.LinksAccount(resourceID) {
		return domain.ConsentContext{}, fmt.Errorf("%w: Resource not linked to consent", domain.ErrForbidden)
	}

	return consent.Context(), nil
}
