package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// CreateQuote issues a QUOTED FX quote with a bounded validity window.
func (s *Service) CreateQuote(ctx context.Context, req QuoteRequest) (QuoteView, error) {
	base := strings.ToUpper(strings.TrimSpace(req.BaseCurrency))
	quote := strings.ToUpper(strings.TrimSpace(req.QuoteCurrency))
	if base == "" || quote == "" {
		return QuoteView{}, fmt.Errorf("%w: base and quote currencies are required", domain.ErrRequestValidation)
	}
	if base == quote {
		return QuoteView{}, fmt.Errorf("%w: base and quote currencies must differ", domain.ErrRequestValidation)
	}
	if req.BaseAmountMinor <= 0 {
		return QuoteView{}, fmt.Errorf("%w: amount must be positive", domain.ErrRequestValidation)
	}

	rate, err := s.rates.Rate(ctx, base, quote)
	if err != nil {
		return QuoteView{}, fmt.Errorf("%w: fx rate source: %v", domain.ErrUnavailable, err)
	}

	now := s.nowFn()
	q := domain.Quote{
		QuoteID:          "FXQ-" + uuid.NewString(),
		ParticipantID:    req.ParticipantID,
		BaseCurrency:     base,
		QuoteCurrency:    quote,
		RateMicro:        rate,
		BaseAmountMinor:  req.BaseAmountMinor,
		QuoteAmountMinor: req.BaseAmountMinor * rate / 1_000_000,
		Status:           domain.QuoteQuoted,
		CreatedAt:        now,
		ValidUntil:       now.Add(s.cfg.QuoteValidity),
	}
	if err := s.quotes.Create(ctx, q); err != nil {
		return QuoteView{}, fmt.Errorf("create quote: %w", err)
	}

	s.logger.InfoContext(ctx, "fx quote issued",
		"module", "fx",
		"operation", "create_quote",
		"outcome", "success",
		"quote_id", q.QuoteID,
		"pair", base+"/"+quote,
	)
	return s.quoteView(q), nil
}

// BookDeal books a deal from a quote exactly once. The idempotency wrap and
// the quote's one-time-booking invariant hold independently: a replay returns
// the original deal, while a distinct second attempt against an already
// booked quote fails regardless of idempotency key.
func (s *Service) BookDeal(ctx context.Context, participantID, quoteID, idempotencyKey string) (DealResult, error) {
	replay, err := s.beginIdempotent(ctx, idempotencyKey, participantID, bookingFingerprint(quoteID, participantID))
	if err != nil {
		return DealResult{}, err
	}
	if replay != nil {
		q, err := s.quotes.GetByID(ctx, quoteID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return DealResult{}, fmt.Errorf("%w: Quote not found", domain.ErrNotFound)
			}
			return DealResult{}, fmt.Errorf("resolve replayed deal: %w", err)
		}
		if q.BookedDealID != replay.ResultReference {
			return DealResult{}, fmt.Errorf("%w: Deal not found", domain.ErrNotFound)
		}
		return DealResult{DealID: q.BookedDealID, Quote: s.quoteView(q), IdempotencyReplay: true}, nil
	}

	result, err := s.bookReservedDeal(ctx, participantID, quoteID, idempotencyKey)
	if err != nil {
		// A rejected booking leaves no record behind; only booked deals do.
		s.releaseIdempotent(ctx, idempotencyKey, participantID)
		return DealResult{}, err
	}
	return result, nil
}

// bookReservedDeal runs the booking itself once a fresh reservation is held.
func (s *Service) bookReservedDeal(ctx context.Context, participantID, quoteID, idempotencyKey string) (DealResult, error) {
	q, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return DealResult{}, fmt.Errorf("%w: Quote not found", domain.ErrNotFound)
		}
		return DealResult{}, err
	}
	if q.ParticipantID != participantID {
		return DealResult{}, fmt.Errorf("%w: participant mismatch", domain.ErrForbidden)
	}

	now := s.nowFn()
	switch q.StatusAt(now) {
	case domain.QuoteBooked:
		return DealResult{}, fmt.Errorf("%w: Quote already booked", domain.ErrBusinessRuleViolation)
	case domain.QuoteExpired:
		return DealResult{}, fmt.Errorf("%w: Quote expired", domain.ErrBusinessRuleViolation)
	}

	dealID := "FXD-" + uuid.NewString()
	if err := s.quotes.Book(ctx, quoteID, dealID, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the booking race to a concurrent attempt.
			return DealResult{}, fmt.Errorf("%w: Quote already booked", domain.ErrBusinessRuleViolation)
		}
		return DealResult{}, fmt.Errorf("book deal: %w", err)
	}
	q.Status = domain.QuoteBooked
	q.BookedDealID = dealID

	eventPayload, _ := json.Marshal(map[string]any{
		"deal_id":        dealID,
		"quote_id":       q.QuoteID,
		"participant_id": participantID,
		"rate_micro":     q.RateMicro,
		"occurred_at":    now,
	})
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "openfinance.fx.deal.booked",
		PartitionKey: q.QuoteID,
		Payload:      eventPayload,
		OccurredAt:   now,
	}); err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"module", "fx",
			"operation", "enqueue_event",
			"outcome", "failure",
			"deal_id", dealID,
			"error", err,
		)
	}

	result := DealResult{DealID: dealID, Quote: s.quoteView(q)}
	responseBody, _ := json.Marshal(result)
	s.finishIdempotent(ctx, idempotencyKey, participantID, dealID, http.StatusCreated, responseBody)

	s.logger.InfoContext(ctx, "fx deal booked",
		"module", "fx",
		"operation", "book_deal",
		"outcome", "success",
		"deal_id", dealID,
		"quote_id", q.QuoteID,
	)
	return result, nil
}

// GetQuote returns the lazily derived quote view for its owning participant.
func (s *Service) GetQuote(ctx context.Context, quoteID, participantID string) (QuoteView, error) {
	q, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return QuoteView{}, fmt.Errorf("%w: Quote not found", domain.ErrNotFound)
		}
		return QuoteView{}, err
	}
	if q.ParticipantID != participantID {
		return QuoteView{}, fmt.Errorf("%w: participant mismatch", domain.ErrForbidden)
	}
	return s.quoteView(q), nil
}

func (s *Service) quoteView(q domain.Quote) QuoteView {
	return QuoteView{
		QuoteID:          q.QuoteID,
		BaseCurrency:     q.BaseCurrency,
		QuoteCurrency:    q.QuoteCurrency,
		RateMicro:        q.RateMicro,
		BaseAmountMinor:  q.BaseAmountMinor,
		QuoteAmountMinor: q.QuoteAmountMinor,
		Status:           string(q.StatusAt(s.nowFn())),
		BookedDealID:     q.BookedDealID,
		ValidUntil:       q.ValidUntil,
	}
}
