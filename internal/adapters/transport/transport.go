package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/Amund211/notesync/internal/logging"
	"github.com/Amund211/notesync/internal/ratelimiting"
	"github.com/Amund211/notesync/internal/reporting"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

const requestTimeout = 15 * time.Second

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Response struct {
	Status int
	Data   []byte
}

// UnauthorizedHandler is called for every 401 response. The returned error replaces the original.
type UnauthorizedHandler func(ctx context.Context, err error) error

type Transport struct {
	baseURL    *url.URL
	httpClient HttpClient
	userAgent  string

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

func New(baseURL string, httpClient HttpClient, userAgent string) (*Transport, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %s", baseURL)
	}

	return &Transport{
		baseURL:    parsed,
		httpClient: httpClient,
		userAgent:  userAgent,
	}, nil
}

// NewHTTPClient builds a client that keeps session cookies, throttles, traces and logs every request
func NewHTTPClient(limiter ratelimiting.RateLimiter) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var roundTripper http.RoundTripper = http.DefaultTransport
	roundTripper = logging.NewRequestLoggerMiddleware(roundTripper)
	roundTripper = ratelimiting.NewRateLimitedTransport(limiter, ratelimiting.MethodKeyFunc, roundTripper)
	roundTripper = otelhttp.NewTransport(
		roundTripper,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("HTTP %s", r.Method)
		}),
	)

	return &http.Client{
		Jar:       jar,
		Transport: roundTripper,
		Timeout:   requestTimeout,
	}, nil
}

func (t *Transport) SetUnauthorizedHandler(handler UnauthorizedHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUnauthorized = handler
}

func (t *Transport) unauthorizedHandler() UnauthorizedHandler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onUnauthorized
}

func (t *Transport) Request(ctx context.Context, method, path string, body any, params url.Values) (Response, error) {
	target := t.baseURL.JoinPath(path)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			err := fmt.Errorf("failed to encode request body: %w", err)
			reporting.Report(ctx, err, map[string]string{"method": method, "path": path})
			return Response{}, err
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		reporting.Report(ctx, err)
		return Response{}, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("%w: failed to send request: %w", domain.ErrNetwork, err)
		if ctx.Err() == nil {
			reporting.Report(ctx, err, map[string]string{"method": method, "path": path})
		}
		return Response{}, err
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("%w: failed to read response body: %w", domain.ErrNetwork, err)
		reporting.Report(ctx, err)
		return Response{}, err
	}

	statusErr := statusErrorFromResponse(method, path, resp.StatusCode, data)
	if statusErr == nil {
		return Response{Status: resp.StatusCode, Data: data}, nil
	}

	if errors.Is(statusErr, domain.ErrUnauthorized) {
		if handler := t.unauthorizedHandler(); handler != nil {
			return Response{Status: resp.StatusCode, Data: data}, handler(ctx, statusErr)
		}
	}

	if errors.Is(statusErr, domain.ErrServer) || errors.Is(statusErr, domain.ErrUnexpectedStatus) {
		reporting.Report(ctx, statusErr, map[string]string{
			"data":   string(data),
			"status": strconv.Itoa(resp.StatusCode),
		})
	}

	return Response{Status: resp.StatusCode, Data: data}, statusErr
}
