package soilid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/metrics"
)

const breakerName = "soil-id"

// ErrUnavailable is returned while the breaker is open or the request
// budget is spent.
var ErrUnavailable = errors.New("soil id service unavailable")

// Backend is what the Service needs from the external algorithm.
type Backend interface {
	List(ctx context.Context, lat, lon float64) (*ListOutput, error)
	Rank(ctx context.Context, req *RankRequest) (*RankOutput, error)
}

type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond caps outgoing calls. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the soil id service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

var _ Backend = (*Client)(nil)

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	log := logging.Component("soilid")
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				log.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("opening soil id circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", from.String()).Str("to", to.String()).Msg("soil id circuit state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
		cb:      cb,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State reports the breaker state, for health output.
func (c *Client) State() string {
	return c.cb.State().String()
}

func (c *Client) List(ctx context.Context, lat, lon float64) (*ListOutput, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	body, err := c.do(ctx, "list", http.MethodGet, c.baseURL+"/list?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var out ListOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode soil list: %w", err)
	}
	return &out, nil
}

func (c *Client) Rank(ctx context.Context, req *RankRequest) (*RankOutput, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, "rank", http.MethodPost, c.baseURL+"/rank", payload)
	if err != nil {
		return nil, err
	}
	var out RankOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode soil rank: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: no service url configured", ErrUnavailable)
	}
	if c.limiter != nil && !c.limiter.Allow() {
		metrics.RecordSoilIDRequest(op, 0, ErrUnavailable)
		return nil, fmt.Errorf("%w: rate limit exceeded", ErrUnavailable)
	}

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("soil id %s returned %d", op, resp.StatusCode)
		}
		return data, nil
	})
	metrics.RecordSoilIDRequest(op, time.Since(start), err)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, err
}
