package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

const scopeReadProducts = "READPRODUCTS"

// ListMetadata serves the cached, consent-scoped metadata read path. The
// guard runs before any cache lookup; the cache key embeds participant,
// consent, account, and the full query shape.
func (s *Service) ListMetadata(ctx context.Context, q MetadataListQuery) (MetadataListResult, error) {
	cc, err := s.Authorize(ctx, q.ConsentID, q.ParticipantID, scopeReadProducts, q.AccountID)
	if err != nil {
		return MetadataListResult{}, err
	}

	page, pageSize := s.normalizePage(q.Page, q.PageSize)
	cacheKey := fmt.Sprintf("meta:list:%s:%s:%s:%s:%s:%d:%d",
		cc.ParticipantID, cc.ConsentID, q.AccountID,
		timeKey(q.FromDate), timeKey(q.ToDate), page, pageSize,
	)

	if raw, tag, hit := s.cache.Get(ctx, cacheKey); hit {
		if q.IfNoneMatch != "" && q.IfNoneMatch == tag {
			return MetadataListResult{CacheHit: true, ETag: tag, NotModified: true}, nil
		}
		var cached MetadataListResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			cached.CacheHit = true
			cached.ETag = tag
			return cached, nil
		}
	}

	items, err := s.metadata.ListByAccount(ctx, q.AccountID)
	if err != nil {
		return MetadataListResult{}, fmt.Errorf("list metadata: %w", err)
	}

	filtered := make([]domain.MetadataItem, 0, len(items))
	for _, item := range items {
		if q.FromDate != nil && item.BookedAt.Before(*q.FromDate) {
			continue
		}
		if q.ToDate != nil && item.BookedAt.After(*q.ToDate) {
			continue
		}
		filtered = append(filtered, item)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].BookedAt.Before(filtered[j].BookedAt)
	})

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	views := make([]MetadataItemView, 0, end-start)
	for _, item := range filtered[start:end] {
		views = append(views, metadataItemView(item))
	}

	result := MetadataListResult{
		Items:        views,
		Page:         page,
		PageSize:     pageSize,
		TotalRecords: total,
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return MetadataListResult{}, fmt.Errorf("encode metadata result: %w", err)
	}
	result.ETag = s.cache.Put(ctx, cacheKey, raw)
	if q.IfNoneMatch != "" && q.IfNoneMatch == result.ETag {
		return MetadataListResult{ETag: result.ETag, NotModified: true}, nil
	}
	return result, nil
}

// GetMetadataItem returns a single metadata record. The linkage check runs
// against the item's owning account after the fetch; cache hits are safe
// because the key already binds the consent that passed that check.
func (s *Service) GetMetadataItem(ctx context.Context, consentID, participantID, itemID, ifNoneMatch string) (MetadataItemResult, error) {
	cc, err := s.Authorize(ctx, consentID, participantID, scopeReadProducts, "")
	if err != nil {
		return MetadataItemResult{}, err
	}

	cacheKey := fmt.Sprintf("meta:item:%s:%s:%s", cc.ParticipantID, cc.ConsentID, itemID)
	if raw, tag, hit := s.cache.Get(ctx, cacheKey); hit {
		if ifNoneMatch != "" && ifNoneMatch == tag {
			return MetadataItemResult{CacheHit: true, ETag: tag, NotModified: true}, nil
		}
		var cached MetadataItemView
		if err := json.Unmarshal(raw, &cached); err == nil {
			return MetadataItemResult{Item: cached, CacheHit: true, ETag: tag}, nil
		}
	}

	item, err := s.metadata.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return MetadataItemResult{}, fmt.Errorf("%w: metadata item not found", domain.ErrNotFound)
		}
		return MetadataItemResult{}, fmt.Errorf("get metadata item: %w", err)
	}

	linked := false
	for _, id := range cc.LinkedAccountIDs {
		if id == item.AccountID {
			linked = true
			break
		}
	}
	if !linked {
		return MetadataItemResult{}, fmt.Errorf("%w: Resource not linked to consent", domain.ErrForbidden)
	}

	view := metadataItemView(item)
	raw, err := json.Marshal(view)
	if err != nil {
		return MetadataItemResult{}, fmt.Errorf("encode metadata item: %w", err)
	}
	tag := s.cache.Put(ctx, cacheKey, raw)
	if ifNoneMatch != "" && ifNoneMatch == tag {
		return MetadataItemResult{ETag: tag, NotModified: true}, nil
	}
	return MetadataItemResult{Item: view, ETag: tag}, nil
}

func (s *Service) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

func metadataItemView(item domain.MetadataItem) MetadataItemView {
	return MetadataItemView{
		ItemID:               item.ItemID,
		AccountID:            item.AccountID,
		Description:          item.Description,
		AmountMinor:          item.AmountMinor,
		Currency:             item.Currency,
		MerchantCategoryCode: item.MerchantCategoryCode,
		FxBaseCurrency:       item.FxBaseCurrency,
		FxRateMicro:          item.FxRateMicro,
		BookedAt:             item.BookedAt,
	}
}

func timeKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
