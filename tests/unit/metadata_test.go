package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

func seedMetadata(f *fixture, accountID string, n int) {
	base := f.clock.Now().Add(-24 * time.Hour)
	for i := 0; i < n; i++ {
		f.metadata.add(domain.MetadataItem{
			ItemID:      itemID(accountID, i),
			AccountID:   accountID,
			Description: "card purchase",
			AmountMinor: int64(1000 + i),
			Currency:    "AED",
			BookedAt:    base.Add(time.Duration(i) * time.Hour),
		})
	}
}

func itemID(accountID string, i int) string {
	return accountID + "-item-" + string(rune('a'+i))
}

func TestListMetadataCacheMissThenHit(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	consentID := f.authorizedConsent("TPP-1", []string{"READPRODUCTS"}, []string{"ACC-100"})
	seedMetadata(f, "ACC-100", 3)

	query := application.MetadataListQuery{
		ConsentID:     consentID,
		ParticipantID: "TPP-1",
		AccountID:     "ACC-100",
	}

	first, err := f.service.ListMetadata(ctx, query)
	if err != nil {
		t.Fatalf("list metadata failed: %v", err)
	}
	if first.CacheHit {
		t.Fatalf("first read must be a cache miss")
	}
	if len(first.Items) != 3 || first.TotalRecords != 3 {
		t.Fatalf("expected 3 items, got %d (total %d)", len(first.Items), first.TotalRecords)
	}
	if first.ETag == "" {
		t.Fatalf("expected revalidation tag on miss")
	}

	second, err := f.service.ListMetadata(ctx, query)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if !second.CacheHit {
		t.Fatalf("second read must be a cache hit")
	}
	if second.ETag != first.ETag {
		t.Fatalf("tag changed between identical reads")
	}
	if f.metadata.listCalls() != 1 {
		t.Fatalf("cache hit must not reach the source, got %d source reads", f.metadata.listCalls())
	}

	// Conditional revalidation with the current tag short-circuits the body.
	query.IfNoneMatch = first.ETag
	third, err := f.service.ListMetadata(ctx, query)
	if err != nil {
		t.Fatalf("conditional list failed: %v", err)
	}
	if !third.NotModified {
		t.Fatalf("expected not-modified for matching tag")
	}
}

func TestListMetadataCacheExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	consentID := f.authorizedConsent("TPP-1", []string{"READPRODUCTS"}, []string{"ACC-100"})
	seedMetadata(f, "ACC-100", 2)

	query := application.MetadataListQuery{ConsentID: consentID, ParticipantID: "TPP-1", AccountID: "ACC-100"}
	if _, err := f.service.ListMetadata(ctx, query); err != nil {
		t.Fatalf("list metadata failed: %v", err)
	}

	f.clock.Advance(31 * time.Second)
	res, err := f.service.ListMetadata(ctx, query)
	if err != nil {
		t.Fatalf("list after ttl failed: %v", err)
	}
	if res.CacheHit {
		t.Fatalf("expected recompute after cache ttl")
	}
	if f.metadata.listCalls() != 2 {
		t.Fatalf("expected 2 source reads, got %d", f.metadata.listCalls())
	}
}

func TestListMetadataGuardRunsBeforeCache(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	consentID := f.authorizedConsent("TPP-1", []string{"READPRODUCTS"}, []string{"ACC-100"})
	seedMetadata(f, "ACC-100", 2)

	query := application.MetadataListQuery{ConsentID: consentID, ParticipantID: "TPP-1", AccountID: "ACC-100"}
	if _, err := f.service.ListMetadata(ctx, query); err != nil {
		t.Fatalf("warm-up list failed: %v", err)
	}

	if _, err := f.service.RevokeConsent(ctx, consentID, "TPP-1", "customer request"); err != nil {
		t.Fatalf("revoke consent failed: %v", err)
	}

	// The cached entry is still warm, but the guard must reject first.
	if _, err := f.service.ListMetadata(ctx, query); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden after revocation despite warm cache, got %v", err)
	}
}

func TestListMetadataPaginationAndDateFilter(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	consentID := f.authorizedConsent("TPP-1", []string{"READPRODUCTS"}, []string{"ACC-100"})
	seedMetadata(f, "ACC-100", 5)

	res, err := f.service.ListMetadata(ctx, application.MetadataListQuery{
		ConsentID: consentID, ParticipantID: "TPP-1", AccountID: "ACC-100",
		Page: 2, PageSize: 2,
	})
	if err != nil {
		t.Fatalf("list metadata failed: %v", err)
	}
	if res.TotalRecords != 5 || len(res.Items) != 2 || res.Page != 2 {
		t.Fatalf("unexpected pagination: total=%d page=%d items=%d", res.TotalRecords, res.Page, len(res.Items))
	}

	from := f.clock.Now().Add(-22 * time.Hour)
	filtered, err := f.service.ListMetadata(ctx, application.MetadataListQuery{
		ConsentID: consentID, ParticipantID: "TPP-1", AccountID: "ACC-100",
		FromDate: &from,
	})
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if filtered.TotalRecords != 3 {
		t.Fatalf("expected 3 items after fromDate filter, got %d", filtered.TotalRecords)
	}
}

func TestListMetadataRequiresLinkedAccount(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	consentID := f.authorizedConsent("TPP-1", []string{"READPRODUCTS"}, []string{"ACC-100"})

	_, err := f.service.ListMetadata(ctx, application.MetadataListQuery{
		ConsentID: consentID, ParticipantID: "TPP-1", AccountID: "ACC-999",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for unlinked account, got %v", err)
	}
}

func TestGetMetadataItem(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	consentID := f.authorizedConsent("TPP-1", []string{"READPRODUCTS"}, []string{"ACC-100"})
	seedMetadata(f, "ACC-100", 1)
	f.metadata.add(domain.MetadataItem{
		ItemID:    "ACC-200-item-a",
		AccountID: "ACC-200",
		BookedAt:  f.clock.Now(),
	})

	res, err := f.service.GetMetadataItem(ctx, consentID, "TPP-1", itemID("ACC-100", 0), "")
	if err != nil {
		t.Fatalf("get metadata item failed: %v", err)
	}
	if res.Item.AccountID != "ACC-100" || res.CacheHit {
		t.Fatalf("unexpected first read: %+v", res)
	}

	hit, err := f.service.GetMetadataItem(ctx, consentID, "TPP-1", itemID("ACC-100", 0), "")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if !hit.CacheHit {
		t.Fatalf("expected cache hit on second read")
	}

	notMod, err := f.service.GetMetadataItem(ctx, consentID, "TPP-1", itemID("ACC-100", 0), res.ETag)
	if err != nil {
		t.Fatalf("conditional get failed: %v", err)
	}
	if !notMod.NotModified {
		t.Fatalf("expected not-modified for matching tag")
	}

	// Item owned by an account the consent does not link.
	if _, err := f.service.GetMetadataItem(ctx, consentID, "TPP-1", "ACC-200-item-a", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for unlinked item, got %v", err)
	}
	if _, err := f.service.GetMetadataItem(ctx, consentID, "TPP-1", "missing-item", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
