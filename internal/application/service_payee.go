package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

// Confirmation-of-payee reason codes for UnableToCheck outcomes.
const (
	reasonAccountNotSupported = "ACNS"
	reasonAccountClosed       = "ACCL"
)

// ConfirmPayee classifies a submitted payee name against the registered
// account name. Identifier format is validated before any registry lookup,
// so malformed identifiers never reach the matching algorithm.
func (s *Service) ConfirmPayee(ctx context.Context, req ConfirmPayeeRequest) (ConfirmPayeeResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return ConfirmPayeeResult{}, fmt.Errorf("%w: payee name is required", domain.ErrRequestValidation)
	}
	if err := domain.ValidateAccountIdentifier(req.AccountIdentifier, req.SchemeName); err != nil {
		return ConfirmPayeeResult{}, err
	}

	account, err := s.payees.Lookup(ctx, strings.ToUpper(strings.TrimSpace(req.AccountIdentifier)), req.SchemeName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ConfirmPayeeResult{
				Result:     domain.UnableToCheck,
				ReasonCode: reasonAccountNotSupported,
			}, nil
		}
		return ConfirmPayeeResult{}, fmt.Errorf("payee lookup: %w", err)
	}
	if account.Status == domain.PayeeAccountClosed {
		return ConfirmPayeeResult{
			Result:        domain.UnableToCheck,
			AccountStatus: string(domain.PayeeAccountClosed),
			ReasonCode:    reasonAccountClosed,
		}, nil
	}

	result, matchedName := domain.ClassifyName(req.Name, account.RegisteredName)
	s.logger.InfoContext(ctx, "payee confirmation evaluated",
		"module", "payees",
		"operation", "confirm_payee",
		"outcome", string(result),
		"scheme", account.SchemeName,
	)
	return ConfirmPayeeResult{
		Result:        result,
		MatchedName:   matchedName,
		AccountStatus: string(account.Status),
	}, nil
}
