package urlresolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/baechuer/curation-service/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
	zlog "github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ErrInvalidURL     = errors.New("urlresolve: invalid url")
	ErrBlockedAddress = errors.New("urlresolve: address not allowed")
)

type Config struct {
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
	// MaxRedirects caps the redirect chain followed per lookup.
	MaxRedirects int
	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
	// AllowPrivate lets lookups reach loopback and private ranges (tests only).
	AllowPrivate bool
}

func DefaultConfig() Config {
	return Config{
		CacheSize:        1024,
		CacheTTL:         6 * time.Hour,
		Timeout:          3 * time.Second,
		MaxRedirects:     5,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Resolver follows a link's redirects to its final URL. Results are kept in a
// bounded LRU with TTL; outbound calls go through a circuit breaker.
type Resolver struct {
	client *http.Client
	cache  *expirable.LRU[string, string]
	cb     *gobreaker.CircuitBreaker[string]
}

func New(cfg Config) *Resolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if !cfg.AllowPrivate {
		dialer.Control = denyPrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "url-resolve",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: upstreamHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			zlog.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &Resolver{
		client: client,
		cache:  expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		cb:     cb,
	}
}

// Resolve returns the final URL after redirects.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	u, err := Canonical(raw)
	if err != nil {
		return "", err
	}
	if final, ok := r.cache.Get(u); ok {
		metrics.RecordURLResolve("cache_hit")
		return final, nil
	}

	final, err := r.cb.Execute(func() (string, error) { return r.follow(ctx, u) })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordURLResolve("breaker_open")
		} else {
			metrics.RecordURLResolve("failed")
		}
		return "", err
	}
	metrics.RecordURLResolve("resolved")
	r.cache.Add(u, final)
	return final, nil
}

// upstreamHealthy keeps rejected user input and abandoned requests from
// counting against the breaker.
func upstreamHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, ErrBlockedAddress) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, context.Canceled)
}

func (r *Resolver) follow(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "curation-service/link-check")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("urlresolve: upstream status %d", resp.StatusCode)
	}
	return resp.Request.URL.String(), nil
}

// Canonical validates raw as an http(s) URL. Bare www. links get https.
func Canonical(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(raw), "www.") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", ErrInvalidURL
	}
	u.Fragment = ""
	return u.String(), nil
}

func denyPrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return ErrBlockedAddress
	}
	return nil
}
