package txaudit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/txaudit/pkg/config"
	"github.com/gofhir/txaudit/pkg/exclusion"
	"github.com/gofhir/txaudit/pkg/terminology"
)

// Option configures the Auditor.
type Option func(*Options)

// Options holds all configuration for the Auditor.
type Options struct {
	// Terminology
	Rules      exclusion.Rules
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client

	// Performance
	Workers   int
	RateLimit float64
	RateBurst int
	CacheSize int

	// Corpus selection
	Prefix    string
	Recursive bool

	Logger  zerolog.Logger
	Metrics *Metrics
}

// DefaultOptions returns the default configuration: one worker, no rate
// limit, no memo and the client's default timeout.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   terminology.DefaultTimeout,
		UserAgent: UserAgent(),
		Workers:   1,
		RateBurst: 1,
		Logger:    zerolog.Nop(),
	}
}

// WithRules sets the code system exclusion rules.
func WithRules(rules exclusion.Rules) Option {
	return func(o *Options) {
		o.Rules = rules
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout >= 0 {
			o.Timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *Options) {
		if ua != "" {
			o.UserAgent = ua
		}
	}
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithWorkers sets how many codings of one file are checked concurrently.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithRateLimit caps requests per second across all workers. Zero means
// unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Options) {
		if rps >= 0 {
			o.RateLimit = rps
		}
		if burst > 0 {
			o.RateBurst = burst
		}
	}
}

// WithCacheSize enables an in-run memo of (system, code) outcomes.
// Zero disables it.
func WithCacheSize(size int) Option {
	return func(o *Options) {
		if size >= 0 {
			o.CacheSize = size
		}
	}
}

// WithPrefix only audits files whose name starts with prefix.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// WithRecursive descends into subdirectories.
func WithRecursive(recursive bool) Option {
	return func(o *Options) {
		o.Recursive = recursive
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMetrics records results, remote calls and files into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// ConfigOptions translates a loaded configuration into options.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithRules(cfg.Excluded),
		WithTimeout(cfg.Timeout),
		WithUserAgent(cfg.UserAgent),
		WithWorkers(cfg.Workers),
		WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		WithCacheSize(cfg.CacheSize),
	}
}
