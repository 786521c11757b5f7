package registry

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiURL    = "https://clinicaltrials.gov/api/v2/studies"
	userAgent = "spigell/trialscope"

	defaultPageSize  = 200
	maxPageSize      = 1000
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 5
)

var (
	// ErrEmptyTerm is returned before any network access when the search term is blank.
	ErrEmptyTerm = eris.New("search term is required")
	// ErrBadStatus is returned for any non-2xx registry response.
	ErrBadStatus = eris.New("registry returned bad status")
	// ErrMalformedPayload is returned when the body is not JSON or has no studies list.
	ErrMalformedPayload = eris.New("registry returned malformed payload")
)

// Config describes how the registry is reached.
type Config struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user-agent"`
	PageSize  int           `mapstructure:"page-size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// RateLimit is requests per second. Zero means the default, negative disables limiting.
	RateLimit float64     `mapstructure:"rate-limit"`
	Cache     CacheConfig `mapstructure:"cache"`
}

// CacheConfig controls memoization of successful fetches by search term.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type Client struct {
	logger     *zap.Logger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      *memo
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	PageSize   int
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		logger: logger,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
		PageSize:  clampPageSize(cfg.PageSize),
		limiter:   newLimiter(cfg.RateLimit),
	}

	if u := strings.TrimSpace(cfg.URL); u != "" {
		c.APIURL = u
	}
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		c.UserAgent = ua
	}
	if cfg.Cache.Enabled {
		c.cache = newMemo(cfg.Cache.Size, cfg.Cache.TTL)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "clinicaltrials.gov",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("registry circuit breaker changed state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// Search issues exactly one query for the term and returns the decoded studies of that page.
// Nothing is retried and further pages are never requested.
func (c *Client) Search(ctx context.Context, params *SearchParams) ([]*Study, error) {
	if params == nil || strings.TrimSpace(params.Term) == "" {
		return nil, ErrEmptyTerm
	}

	query := *params
	if query.PageSize <= 0 {
		query.PageSize = c.PageSize
	}
	query.PageSize = clampPageSize(query.PageSize)
	params = &query

	key := cacheKey(params)
	if studies, ok := c.cache.get(key); ok {
		c.logger.Debug("serving studies from memo", zap.String("term", params.Term), zap.Int("count", len(studies)))
		return studies, nil
	}

	studies, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}

	c.cache.add(key, studies)

	return studies, nil
}

// Fetch is Search with the degrade-to-empty policy: every failure other than a blank term is
// logged and turned into an empty result set.
func (c *Client) Fetch(ctx context.Context, term string) ([]*Study, error) {
	studies, err := c.Search(ctx, &SearchParams{Term: term, CountTotal: true})
	if err != nil {
		if eris.Is(err, ErrEmptyTerm) {
			return nil, err
		}

		c.logger.Warn("fetching studies failed, treating as no data",
			zap.String("term", term),
			zap.Error(err),
		)
		return []*Study{}, nil
	}

	return studies, nil
}

func clampPageSize(size int) int {
	switch {
	case size <= 0:
		return defaultPageSize
	case size > maxPageSize:
		return maxPageSize
	default:
		return size
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	switch {
	case perSecond < 0:
		return rate.NewLimiter(rate.Inf, 1)
	case perSecond == 0:
		perSecond = defaultRateLimit
	}

	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
