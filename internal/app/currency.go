package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"monobook/internal/domain"
)

const (
	DefaultCurrencyCode    = "USD"
	DefaultCurrencyDisplay = "$"
)

// NormalizeCurrency upper-cases a 3-letter alphabetic code; anything else maps to USD.
func NormalizeCurrency(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return DefaultCurrencyCode
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return DefaultCurrencyCode
		}
	}
	return c
}

func ResolveCurrencyDisplay(code string, displays map[string]string) string {
	if d, ok := displays[code]; ok {
		return d
	}
	if code == DefaultCurrencyCode {
		return DefaultCurrencyDisplay
	}
	return code
}

type CurrencyService struct {
	repo     domain.CurrencyRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCurrencyService(r domain.CurrencyRepository, c domain.Cache, ttl time.Duration) *CurrencyService {
	return &CurrencyService{repo: r, cache: c, cacheTTL: ttl}
}

// FetchDisplayMap deduplicates and normalizes codes, then resolves them in one batch.
// A blank display falls back to the code itself.
func (s *CurrencyService) FetchDisplayMap(ctx context.Context, codes []string) (map[string]string, error) {
	set := map[string]struct{}{}
	for _, c := range codes {
		set[NormalizeCurrency(c)] = struct{}{}
	}
	if len(set) == 0 {
		return map[string]string{}, nil
	}
	norm := make([]string, 0, len(set))
	for c := range set {
		norm = append(norm, c)
	}
	sort.Strings(norm)

	key := "currency:" + strings.Join(norm, ",")
	var out map[string]string
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok && out != nil {
			return out, nil
		}
	}

	rows, err := s.repo.CurrencyDisplays(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("currency displays: %w", err)
	}
	out = make(map[string]string, len(rows))
	for code, display := range rows {
		c := NormalizeCurrency(code)
		if d := strings.TrimSpace(display); d != "" {
			out[c] = d
		} else {
			out[c] = c
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("currency cache set failed")
		}
	}
	return out, nil
}
