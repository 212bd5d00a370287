package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

type Repositories struct {
	Consents    ports.ConsentRepository
	Payments    ports.PaymentRepository
	Quotes      ports.QuoteRepository
	Payees      ports.PayeeDirectory
	Accounts    ports.AccountRepository
	Metadata    ports.MetadataSource
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Consents:    &consentRepository{db: db},
		Payments:    &paymentRepository{db: db},
		Quotes:      &quoteRepository{db: db},
		Payees:      &payeeRepository{db: db},
		Accounts:    &accountRepository{db: db},
		Metadata:    &metadataRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Scope and account lists are stored as comma-separated text; entries never
// contain commas (scopes are upper-cased identifiers, account ids are opaque
// tokens minted by us).
func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
