// Package fetch implements the per-source fetch session on top of Colly.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/metrics"
)

// Config controls session behavior.
type Config struct {
	Timeout     time.Duration
	Delay       time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Session fetches pages for one source. It keeps a pooled transport per
// source host, applies the source's header profile to every request,
// enforces a fixed inter-request politeness delay and retries transient
// failures with jittered backoff. Deliberate denials (403/429) surface as
// *ingest.BlockedError without any retry so the caller can escalate to a
// fallback instead of hammering the source. Every attempt's latency is
// recorded in the per-source fetch histogram.
type Session struct {
	source  string
	cfg     Config
	profile ingest.HeaderProfile
	base    *colly.Collector
	policy  *RetryPolicy
	log     *zap.Logger

	mu       sync.Mutex
	lastDone time.Time

	// pause is swapped out in tests to avoid real sleeps.
	pause func(ctx context.Context, d time.Duration)
}

// NewSession builds a Session for one source.
func NewSession(source string, profile ingest.HeaderProfile, cfg Config, log *zap.Logger) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	metrics.Init()
	base := colly.NewCollector(colly.Async(false))
	base.AllowURLRevisit = true
	base.WithTransport(newTransport())
	base.SetRequestTimeout(cfg.Timeout)
	if profile.UserAgent != "" {
		base.UserAgent = profile.UserAgent
	}

	return &Session{
		source:  source,
		cfg:     cfg,
		profile: profile,
		base:    base,
		policy:  NewRetryPolicy(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffMax),
		log:     log,
		pause:   timerPause,
	}
}

// Fetch retrieves a single URL, honoring politeness, retries and the
// Blocked/transient error split.
func (s *Session) Fetch(ctx context.Context, url string) (ingest.Page, error) {
	for attempt := 0; ; attempt++ {
		if err := s.politeWait(ctx); err != nil {
			return ingest.Page{}, &ingest.FetchError{URL: url, Err: err}
		}

		start := time.Now()
		page, err := s.attempt(ctx, url)
		metrics.ObserveFetchDuration(s.source, time.Since(start))
		if err == nil {
			return page, nil
		}
		if ingest.IsBlocked(err) {
			s.log.Warn("source blocked request",
				zap.String("url", url),
				zap.Error(err),
			)
			return ingest.Page{}, err
		}
		if !s.policy.ShouldRetry(err, attempt) {
			return ingest.Page{}, err
		}
		backoff := s.policy.Backoff(attempt)
		s.log.Debug("retrying fetch",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		s.pause(ctx, backoff)
	}
}

func (s *Session) attempt(ctx context.Context, url string) (ingest.Page, error) {
	var (
		page     ingest.Page
		got      bool
		fetchErr error
	)

	collector := s.base.Clone()
	collector.OnRequest(func(r *colly.Request) {
		s.applyProfile(r)
	})
	collector.OnResponse(func(r *colly.Response) {
		page = ingest.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
		got = true
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && blockedStatus(r.StatusCode) {
			fetchErr = &ingest.BlockedError{URL: url, StatusCode: r.StatusCode}
			return
		}
		fetchErr = err
	})

	if err := s.runVisit(ctx, collector, url); err != nil {
		if fetchErr != nil {
			err = fetchErr
		}
		if ingest.IsBlocked(err) {
			return ingest.Page{}, err
		}
		return ingest.Page{}, &ingest.FetchError{URL: url, Err: err}
	}
	if !got {
		return ingest.Page{}, &ingest.FetchError{URL: url, Err: fmt.Errorf("no response received")}
	}
	return page, nil
}

func (s *Session) runVisit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *Session) applyProfile(r *colly.Request) {
	p := s.profile
	if p.Accept != "" {
		r.Headers.Set("Accept", p.Accept)
	}
	if p.AcceptLanguage != "" {
		r.Headers.Set("Accept-Language", p.AcceptLanguage)
	}
	if p.AcceptEncoding != "" {
		r.Headers.Set("Accept-Encoding", p.AcceptEncoding)
	}
	if p.Referer != "" {
		r.Headers.Set("Referer", p.Referer)
	}
	for key, value := range p.Extra {
		r.Headers.Set(key, value)
	}
}

// politeWait enforces the fixed inter-request delay for this source's host.
func (s *Session) politeWait(ctx context.Context) error {
	if s.cfg.Delay <= 0 {
		return nil
	}
	s.mu.Lock()
	wait := time.Until(s.lastDone.Add(s.cfg.Delay))
	s.lastDone = time.Now().Add(wait)
	s.mu.Unlock()

	if wait > 0 {
		s.pause(ctx, wait)
	}
	return ctx.Err()
}

// blockedStatus reports statuses that signal deliberate denial rather than
// a transient failure.
func blockedStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

func timerPause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
