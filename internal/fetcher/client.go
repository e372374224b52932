// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package fetcher composes the cache, the rate limiter, the HTTP client and
// the parsers into the three upstream operations: list, view, download.
// Every decision (hit, fetch, failure) lands in the request ledger.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/nyaproxy/internal/diskcache"
	"github.com/autobrr/nyaproxy/internal/domain"
	"github.com/autobrr/nyaproxy/internal/parser"
	"github.com/autobrr/nyaproxy/internal/ratelimit"
	"github.com/autobrr/nyaproxy/internal/store"
	"github.com/autobrr/nyaproxy/internal/tracker"
)

const (
	defaultListTTL     = time.Minute
	defaultViewTTL     = 10 * time.Minute
	defaultDownloadTTL = 10 * time.Minute
)

// EventRecorder receives indexer events. The item store implements it; the
// mirror coordinators run without one.
type EventRecorder interface {
	AppendEvent(ctx context.Context, typ store.EventType, data any)
}

// Config carries the per-origin fetch settings.
type Config struct {
	URL       string
	MirrorID  string
	UserAgent string

	MinInterval time.Duration
	MaxRetries  int

	ConnectTimeout time.Duration
	Timeout        time.Duration

	// LocalAddress and Interface bind outgoing connections; the address
	// wins when both are set.
	LocalAddress string
	Interface    string

	ListTTL     time.Duration
	ViewTTL     time.Duration
	DownloadTTL time.Duration

	// Transport overrides the built HTTP transport. Tests use it to serve
	// fixtures without a live upstream.
	Transport http.RoundTripper
}

// Coordinator is safe for concurrent use; the limiter serializes admission
// and the cache carries its own lock.
type Coordinator struct {
	cfg     Config
	client  *http.Client
	cache   *diskcache.Cache
	limiter *ratelimit.Limiter
	tracker *tracker.Tracker
	events  EventRecorder
	metrics *Metrics
}

func New(cfg Config, cache *diskcache.Cache, limiter *ratelimit.Limiter, tr *tracker.Tracker, events EventRecorder, metrics *Metrics) (*Coordinator, error) {
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = defaultListTTL
	}
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = defaultViewTTL
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = defaultDownloadTTL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	transport := cfg.Transport
	if transport == nil {
		var err error
		transport, err = buildTransport(cfg)
		if err != nil {
			return nil, err
		}
	}

	return &Coordinator{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		cache:   cache,
		limiter: limiter,
		tracker: tr,
		events:  events,
		metrics: metrics,
	}, nil
}

func buildTransport(cfg Config) (http.RoundTripper, error) {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	switch {
	case cfg.LocalAddress != "":
		ip := net.ParseIP(cfg.LocalAddress)
		if ip == nil {
			return nil, fmt.Errorf("invalid local address %q", cfg.LocalAddress)
		}
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	case cfg.Interface != "":
		ip, err := interfaceAddr(cfg.Interface)
		if err != nil {
			return nil, err
		}
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}

	return &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
	}, nil
}

func interfaceAddr(name string) (net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %q: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("interface %q addresses: %w", name, err)
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLinkLocalUnicast() {
			return ipNet.IP, nil
		}
	}
	return nil, fmt.Errorf("interface %q has no usable address", name)
}

// List fetches the listing for q, serving from cache when possible. The
// returned flag reports a cache hit.
func (c *Coordinator) List(ctx context.Context, q domain.ListQuery) ([]domain.ListItem, bool, error) {
	enc := q.Encode()

	var items []domain.ListItem
	if c.cache.Get(c.cfg.URL, enc, &items) {
		c.tracker.TrackCached(ctx, c.cfg.MirrorID, c.cfg.URL, enc)
		c.metrics.observe("list", "hit")
		c.event(ctx, store.EventFetchList, map[string]any{"url": c.cfg.URL, "query": enc, "cached": true})
		return items, true, nil
	}

	begin := time.Now()
	err := c.withRetry(ctx, func() error {
		fetched, err := c.attempt(ctx, "list", c.cfg.URL, enc, begin, func(body []byte, contentType string) (any, error) {
			switch {
			case strings.Contains(contentType, "xml"):
				return parser.ParseFeed(body)
			case strings.Contains(contentType, "html"):
				return parser.ParseList(c.cfg.URL, body)
			default:
				return nil, &UnsupportedContentTypeError{ContentType: contentType}
			}
		})
		if err != nil {
			return err
		}
		items = fetched.([]domain.ListItem)
		return nil
	})
	if err != nil {
		c.metrics.observe("list", "failure")
		c.event(ctx, store.EventFetchList, map[string]any{"url": c.cfg.URL, "query": enc, "error": err.Error()})
		return nil, false, err
	}

	c.putCache(c.cfg.URL, enc, c.cfg.ListTTL, items)
	c.metrics.observe("list", "success")
	c.event(ctx, store.EventFetchList, map[string]any{"url": c.cfg.URL, "query": enc, "items": len(items)})
	return items, false, nil
}

// View fetches the detail page for id. Its cache key carries a "view:"
// fragment so it cannot collide with a download of the same id.
func (c *Coordinator) View(ctx context.Context, id int64) (*domain.View, bool, error) {
	key := "view:" + strconv.FormatInt(id, 10)
	viewURL := fmt.Sprintf("%s/view/%d", c.cfg.URL, id)

	var view domain.View
	if c.cache.Get(c.cfg.URL, key, &view) {
		c.tracker.TrackCached(ctx, c.cfg.MirrorID, viewURL, "")
		c.metrics.observe("view", "hit")
		return &view, true, nil
	}

	begin := time.Now()
	err := c.withRetry(ctx, func() error {
		fetched, err := c.attempt(ctx, "view", viewURL, "", begin, func(body []byte, contentType string) (any, error) {
			if !strings.Contains(contentType, "html") {
				return nil, &UnsupportedContentTypeError{ContentType: contentType}
			}
			return parser.ParseView(c.cfg.URL, body)
		})
		if err != nil {
			return err
		}
		view = *fetched.(*domain.View)
		return nil
	})
	if err != nil {
		c.metrics.observe("view", "failure")
		c.event(ctx, store.EventFetchView, map[string]any{"url": viewURL, "error": err.Error()})
		return nil, false, err
	}

	c.putCache(c.cfg.URL, key, c.cfg.ViewTTL, view)
	c.metrics.observe("view", "success")
	c.event(ctx, store.EventFetchView, map[string]any{"url": viewURL, "id": id})
	return &view, false, nil
}

// Download fetches the torrent artifact for id. The bytes pass through
// unparsed together with the upstream content type, and there is no retry.
func (c *Coordinator) Download(ctx context.Context, id int64) (*domain.Payload, bool, error) {
	key := strconv.FormatInt(id, 10)
	downloadURL := fmt.Sprintf("%s/download/%d.torrent", c.cfg.URL, id)

	var payload domain.Payload
	if c.cache.Get(c.cfg.URL, key, &payload) {
		c.tracker.TrackCached(ctx, c.cfg.MirrorID, downloadURL, "")
		c.metrics.observe("download", "hit")
		return &payload, true, nil
	}

	begin := time.Now()
	fetched, err := c.attempt(ctx, "download", downloadURL, "", begin, func(body []byte, contentType string) (any, error) {
		return &domain.Payload{Data: body, ContentType: contentType}, nil
	})
	if err != nil {
		c.metrics.observe("download", "failure")
		c.event(ctx, store.EventDownload, map[string]any{"url": downloadURL, "error": err.Error()})
		return nil, false, err
	}
	payload = *fetched.(*domain.Payload)

	c.putCache(c.cfg.URL, key, c.cfg.DownloadTTL, payload)
	c.metrics.observe("download", "success")
	c.event(ctx, store.EventDownload, map[string]any{"url": downloadURL, "id": id})
	return &payload, false, nil
}

// attempt runs one rate-limited network fetch and records its outcome in
// the ledger: failures carry the attempt's own elapsed time, the success
// carries the time since the operation began, retries included.
func (c *Coordinator) attempt(ctx context.Context, op, fetchURL, query string, begin time.Time, decode func(body []byte, contentType string) (any, error)) (any, error) {
	if !c.limiter.TryAcquire() {
		c.event(ctx, store.EventRateLimit, map[string]any{"url": fetchURL, "operation": op})
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	value, err := c.fetch(ctx, op, fetchURL, query, decode)
	if err != nil {
		c.tracker.Track(ctx, c.cfg.MirrorID, fetchURL, query, false, time.Since(start))
		return nil, err
	}
	c.tracker.Track(ctx, c.cfg.MirrorID, fetchURL, query, true, time.Since(begin))
	return value, nil
}

func (c *Coordinator) fetch(ctx context.Context, op, fetchURL, query string, decode func(body []byte, contentType string) (any, error)) (any, error) {
	reqURL := fetchURL
	if query != "" {
		reqURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", acceptHeader(op))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	return decode(body, resp.Header.Get("Content-Type"))
}

func acceptHeader(op string) string {
	switch op {
	case "list":
		return "application/xml, text/html, */*; q=0.9"
	case "view":
		return "text/html, */*; q=0.9"
	default:
		return "*/*; q=0.9"
	}
}

// withRetry re-runs the attempt after a fixed wait of min_interval plus one
// second, up to MaxRetries extra attempts, keeping only the last error.
// Parse errors are final: re-fetching will not change the content.
func (c *Coordinator) withRetry(ctx context.Context, attempt func() error) error {
	return retry.Do(
		attempt,
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)+1),
		retry.Delay(c.cfg.MinInterval+time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !parser.IsParseError(err)
		}),
	)
}

// Cache writes after a successful fetch are best-effort.
func (c *Coordinator) putCache(url, query string, ttl time.Duration, v any) {
	if err := c.cache.Put(url, query, ttl, v); err != nil {
		log.Warn().Err(err).Str("url", url).Str("query", query).Msg("failed to cache fetched value")
	}
}

func (c *Coordinator) event(ctx context.Context, typ store.EventType, data map[string]any) {
	if c.events == nil {
		return
	}
	c.events.AppendEvent(ctx, typ, data)
}
