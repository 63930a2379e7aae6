package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/nniahq/portal-api/internal/observability/metrics"
	"github.com/nniahq/portal-api/pkg/logging"
)

// Provenance tags recorded on every resolution.
const (
	SourceRemote  = "remote-time-service"
	SourceBackend = "backend-fallback"
	SourceLocal   = "local-clock"
)

// Resolution is the outcome of a clock lookup: the resolved instant plus the
// fallback layer that produced it. Provider names the remote service when
// Source is SourceRemote.
type Resolution struct {
	Instant  time.Time
	Source   string
	Provider string
}

// SourceConfig configures a Source. Zero values fall back to defaults.
type SourceConfig struct {
	Providers       []Provider
	FallbackURL     string
	ProviderTimeout time.Duration
	FallbackTimeout time.Duration
	CacheTTL        time.Duration

	HTTPClient *http.Client
	Clock      Clock
	Logger     *logging.Logger
	Metrics    *metrics.PortalMetrics
}

// Source resolves the best-available current instant. Remote time services
// are tried strictly in priority order with a short per-attempt timeout,
// then a first-party fallback endpoint, then the local clock. Resolve never
// fails: the local clock is unconditionally reachable.
//
// Successful remote and backend resolutions are cached for CacheTTL to keep
// the request rate against third-party services bounded. The cache is owned
// by the Source value; callers share a single Source process-wide.
type Source struct {
	providers       []Provider
	fallbackURL     string
	providerTimeout time.Duration
	fallbackTimeout time.Duration
	cacheTTL        time.Duration

	httpClient *http.Client
	clock      Clock
	logger     *logging.Logger
	metrics    *metrics.PortalMetrics

	mu       sync.Mutex
	cached   *Resolution
	cachedAt time.Time
}

// NewSource creates a clock source from config.
func NewSource(cfg SourceConfig) *Source {
	providers := cfg.Providers
	if providers == nil {
		providers = DefaultProviders()
	}
	providerTimeout := cfg.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = 3 * time.Second
	}
	fallbackTimeout := cfg.FallbackTimeout
	if fallbackTimeout <= 0 {
		fallbackTimeout = 5 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Source{
		providers:       providers,
		fallbackURL:     cfg.FallbackURL,
		providerTimeout: providerTimeout,
		fallbackTimeout: fallbackTimeout,
		cacheTTL:        cacheTTL,
		httpClient:      httpClient,
		clock:           clock,
		logger:          logger,
		metrics:         cfg.Metrics,
	}
}

// Resolve returns the current instant with its provenance. A cached value
// within the TTL window is returned without issuing network requests.
func (s *Source) Resolve(ctx context.Context) Resolution {
	s.mu.Lock()
	if s.cached != nil && s.clock.Now().Sub(s.cachedAt) < s.cacheTTL {
		res := *s.cached
		s.mu.Unlock()
		return res
	}
	s.mu.Unlock()

	for _, p := range s.providers {
		instant, err := s.fetchProvider(ctx, p)
		if err != nil {
			s.logger.Warn("time provider failed", "provider", p.Name, "error", err)
			continue
		}
		res := Resolution{Instant: instant, Source: SourceRemote, Provider: p.Name}
		s.store(res)
		s.metrics.ObserveClockResolution(SourceRemote)
		return res
	}

	if s.fallbackURL != "" {
		instant, err := s.fetchBackend(ctx)
		if err != nil {
			s.logger.Warn("backend time fallback failed", "error", err)
		} else {
			res := Resolution{Instant: instant, Source: SourceBackend}
			s.store(res)
			s.metrics.ObserveClockResolution(SourceBackend)
			return res
		}
	}

	// Local clock results are deliberately not cached so that remote
	// providers are retried on the next resolution.
	s.metrics.ObserveClockResolution(SourceLocal)
	return Resolution{Instant: s.clock.Now().UTC(), Source: SourceLocal}
}

// ClearCache drops any cached resolution.
func (s *Source) ClearCache() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Source) store(res Resolution) {
	s.mu.Lock()
	s.cached = &res
	s.cachedAt = s.clock.Now()
	s.mu.Unlock()
}

func (s *Source) fetchProvider(ctx context.Context, p Provider) (time.Time, error) {
	body, err := s.get(ctx, p.URL, s.providerTimeout)
	if err != nil {
		return time.Time{}, err
	}
	return p.Parse(body)
}

// backendTimeResponse matches the /nnia/real-time contract.
type backendTimeResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
}

func (s *Source) fetchBackend(ctx context.Context) (time.Time, error) {
	body, err := s.get(ctx, s.fallbackURL, s.fallbackTimeout)
	if err != nil {
		return time.Time{}, err
	}
	var payload backendTimeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return time.Time{}, fmt.Errorf("realtime: decode backend time: %w", err)
	}
	if !payload.Success || payload.Date == "" {
		return time.Time{}, fmt.Errorf("realtime: backend time unavailable")
	}
	instant, err := time.Parse(time.RFC3339, payload.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("realtime: parse backend date %q: %w", payload.Date, err)
	}
	return instant.UTC(), nil
}

func (s *Source) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("realtime: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("realtime: %s returned status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("realtime: read body: %w", err)
	}
	return body, nil
}
