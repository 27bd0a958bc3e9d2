package txaudit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gofhir/txaudit/pkg/corpus"
	"github.com/gofhir/txaudit/pkg/report"
	"github.com/gofhir/txaudit/pkg/result"
	"github.com/gofhir/txaudit/pkg/terminology"
	"github.com/gofhir/txaudit/pkg/validator"
	"github.com/gofhir/txaudit/pkg/walker"
)

// ErrCapability is returned when the endpoint is not a usable R4
// terminology server.
var ErrCapability = errors.New("terminology server capability check failed")

// Auditor audits resource directories against one terminology server.
type Auditor struct {
	opts   *Options
	client *terminology.Client
	cached *terminology.Cached
	driver *corpus.Driver
	logger zerolog.Logger
}

// New creates an Auditor for the server at endpoint.
func New(endpoint string, opts ...Option) (*Auditor, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	rules, err := o.Rules.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion rules: %w", err)
	}

	clientOpts := []terminology.ClientOption{
		terminology.WithTimeout(o.Timeout),
		terminology.WithUserAgent(o.UserAgent),
		terminology.WithRateLimit(o.RateLimit, o.RateBurst),
		terminology.WithLogger(o.Logger),
	}
	if o.HTTPClient != nil {
		clientOpts = append(clientOpts, terminology.WithHTTPClient(o.HTTPClient))
	}
	if o.Metrics != nil {
		clientOpts = append(clientOpts, terminology.WithCallObserver(o.Metrics))
	}
	client, err := terminology.NewClient(endpoint, clientOpts...)
	if err != nil {
		return nil, err
	}

	a := &Auditor{opts: o, client: client, logger: o.Logger}

	var provider terminology.Provider = client
	if o.CacheSize > 0 {
		a.cached = terminology.NewCached(client, o.CacheSize)
		provider = a.cached
	}

	v := validator.New(provider,
		validator.WithRules(rules),
		validator.WithLogger(o.Logger),
	)
	w := walker.New(v,
		walker.WithWorkers(o.Workers),
		walker.WithLogger(o.Logger),
	)

	driverOpts := []corpus.Option{
		corpus.WithPrefix(o.Prefix),
		corpus.WithRecursive(o.Recursive),
		corpus.WithLogger(o.Logger),
	}
	if o.Metrics != nil {
		driverOpts = append(driverOpts, corpus.WithFileObserver(o.Metrics))
	}
	a.driver = corpus.New(w, driverOpts...)
	return a, nil
}

// Endpoint returns the terminology server base URL.
func (a *Auditor) Endpoint() string {
	return a.client.Endpoint()
}

// Capability returns the raw capability status: 200 for an R4 terminology
// server, 418 for any other FHIR server, or the HTTP status received.
func (a *Auditor) Capability(ctx context.Context) (int, error) {
	return a.client.Capability(ctx)
}

// CheckCapability fails with ErrCapability unless the server is an R4
// terminology server.
func (a *Auditor) CheckCapability(ctx context.Context) error {
	status, err := a.client.Capability(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapability, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrCapability, status)
	}
	a.logger.Info().Str("endpoint", a.Endpoint()).Msg("terminology server capability confirmed")
	return nil
}

// Run audits every resource file under dir. The returned error is non-nil
// only when dir cannot be listed or ctx is cancelled; a partial report is
// still returned in the latter case.
func (a *Auditor) Run(ctx context.Context, dir string) (*Report, error) {
	meta := report.Meta{
		RunID:    uuid.NewString(),
		Endpoint: a.Endpoint(),
		Started:  time.Now(),
	}
	log := a.logger.With().Str("run_id", meta.RunID).Logger()
	log.Info().Str("dir", dir).Int("workers", a.opts.Workers).Msg("audit started")

	rows, err := a.driver.Run(ctx, dir)
	meta.Finished = time.Now()

	if rows == nil {
		rows = []result.ValidationResult{}
	}
	rep := &Report{Meta: meta, Rows: rows, Counts: result.Tally(rows)}
	if a.opts.Metrics != nil {
		a.opts.Metrics.ObserveResults(rows)
	}

	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Int("rows", len(rows)).
		Int("fail", rep.Counts[result.Fail]).
		Int("error", rep.Counts[result.Error]).
		Dur("elapsed", meta.Duration()).
		Msg("audit finished")

	if a.cached != nil {
		st := a.cached.Stats()
		log.Debug().
			Uint64("hits", st.Hits).
			Uint64("misses", st.Misses).
			Float64("hit_rate", st.HitRate()).
			Msg("validation memo")
	}

	if err != nil {
		return rep, fmt.Errorf("audit %s: %w", dir, err)
	}
	return rep, nil
}
