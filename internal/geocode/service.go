package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/metrics"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmptyAddress  = errors.New("address is required")
	ErrNoMatch       = errors.New("no geocoding match for address")
	ErrUpstream      = errors.New("geocoding provider failure")
	ErrNotConfigured = errors.New("geocoding provider is not configured")
)

type Options struct {
	// RPS caps calls to the provider; <= 0 disables throttling.
	RPS float64
	// Timeout bounds one provider call including the wait for a rate token.
	Timeout time.Duration
}

// Service answers lookups from the cache and falls back to the provider on
// a miss. Only successful lookups are cached.
type Service struct {
	db       *gorm.DB
	provider Provider
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewService builds a Service. A nil provider makes every cache miss an
// ErrNotConfigured failure.
func NewService(d *gorm.DB, provider Provider, opts Options) *Service {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Service{db: d, provider: provider, limiter: limiter, timeout: opts.Timeout}
}

func (s *Service) Resolve(ctx context.Context, address string) (*Result, error) {
	key := Normalize(address)
	if key == "" {
		return nil, ErrEmptyAddress
	}

	var entry GeocodeCacheEntry
	err := s.db.WithContext(ctx).Where("query = ?", key).Limit(1).Find(&entry).Error
	if err != nil {
		return nil, fmt.Errorf("read geocode cache: %w", err)
	}
	if entry.Query != "" {
		metrics.GeocodeCacheHitsTotal.Inc()
		return &Result{Lat: entry.Lat, Lng: entry.Lng, FormattedAddress: entry.FormattedAddress}, nil
	}
	metrics.GeocodeCacheMissesTotal.Inc()

	if s.provider == nil {
		return nil, ErrNotConfigured
	}

	res, err := s.lookup(ctx, address)
	if err != nil {
		return nil, err
	}

	entry = GeocodeCacheEntry{
		Query:            key,
		OriginalQuery:    address,
		Lat:              res.Lat,
		Lng:              res.Lng,
		FormattedAddress: res.FormattedAddress,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "query"}}, UpdateAll: true}).
		Create(&entry).Error
	if err != nil {
		// the result is still good; the next call just misses again
		log.Printf("[geocode] cache write failed query=%q: %v", key, err)
	}
	return res, nil
}

func (s *Service) lookup(ctx context.Context, address string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		metrics.GeocodeUpstreamTotal.WithLabelValues("throttled").Inc()
		return nil, fmt.Errorf("%w: rate limit wait: %v", ErrUpstream, err)
	}

	start := time.Now()
	res, err := s.provider.Geocode(ctx, address)
	metrics.GeocodeUpstreamDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		metrics.GeocodeUpstreamTotal.WithLabelValues("ok").Inc()
		return res, nil
	case errors.Is(err, ErrNoMatch):
		metrics.GeocodeUpstreamTotal.WithLabelValues("no_match").Inc()
		return nil, err
	case errors.Is(err, ErrUpstream):
		metrics.GeocodeUpstreamTotal.WithLabelValues("error").Inc()
		log.Printf("[geocode] provider error: %v", err)
		return nil, err
	default:
		metrics.GeocodeUpstreamTotal.WithLabelValues("error").Inc()
		log.Printf("[geocode] provider error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}
