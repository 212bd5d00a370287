package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

// payeeRepository serves confirmation-of-payee lookups from the local
// registry table. In a federated deployment this port would front the
// scheme directory instead.
type payeeRepository struct {
	db *gorm.DB
}

func (r *payeeRepository) Lookup(ctx context.Context, accountIdentifier, schemeName string) (domain.PayeeAccount, error) {
	var rec payeeAccountModel
	if err := r.db.WithContext(ctx).
		Where("account_identifier = ?", accountIdentifier).
		Where("scheme_name = ?", schemeName).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PayeeAccount{}, domain.ErrNotFound
		}
		return domain.PayeeAccount{}, err
	}
	return domain.PayeeAccount{
		AccountIdentifier: rec.AccountIdentifier,
		SchemeName:        rec.SchemeName,
		RegisteredName:    rec.RegisteredName,
		Status:            domain.PayeeAccountStatus(rec.Status),
	}, nil
}
