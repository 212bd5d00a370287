package rates

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StaticRateSource serves FX rates from a configured table keyed
// "BASE/QUOTE", values in micro-units (3.672500 -> 3672500). A market-data
// feed adapter would implement the same port in a live deployment.
type StaticRateSource struct {
	mu    sync.RWMutex
	table map[string]int64
}

func NewStaticRateSource(table map[string]int64) *StaticRateSource {
	normalized := make(map[string]int64, len(table))
	for pair, rate := range table {
		normalized[strings.ToUpper(strings.TrimSpace(pair))] = rate
	}
	return &StaticRateSource{table: normalized}
}

func (s *StaticRateSource) Rate(_ context.Context, baseCurrency, quoteCurrency string) (int64, error) {
	pair := strings.ToUpper(baseCurrency) + "/" + strings.ToUpper(quoteCurrency)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.table[pair]
	if !ok {
		return 0, fmt.Errorf("no rate configured for %s", pair)
	}
	return rate, nil
}

// SetRate updates one pair; local tooling uses it to steer quotes.
func (s *StaticRateSource) SetRate(pair string, rate int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[strings.ToUpper(strings.TrimSpace(pair))] = rate
}
