// Package source implements page sources backing the fetch pipeline.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// FeedSource fetches pages from a JSON feed over HTTPS. A page ref maps to
// GET <base>/<kind>/<id>.json and the response body is a flat JSON object
// whose values become raw fields.
type FeedSource struct {
	baseURL   string
	client    tls_client.HttpClient
	userAgent string
	logger    *utils.Logger
}

// FeedSourceOptions configures a FeedSource.
type FeedSourceOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string
	Logger    *utils.Logger
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// NewFeedSource creates a feed source for the given base URL.
func NewFeedSource(opts FeedSourceOptions) (*FeedSource, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("source: base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	tlsOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(opts.Timeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
	}
	if opts.ProxyURL != "" {
		tlsOpts = append(tlsOpts, tls_client.WithProxyUrl(opts.ProxyURL))
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), tlsOpts...)
	if err != nil {
		return nil, fmt.Errorf("source: create tls client: %w", err)
	}

	return &FeedSource{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    client,
		userAgent: opts.UserAgent,
		logger:    opts.Logger.WithComponent("source"),
	}, nil
}

// Fetch retrieves one page and flattens it into raw fields.
func (s *FeedSource) Fetch(ctx context.Context, ref domain.PageRef) (domain.RawFields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := s.pageURL(ref)
	s.logger.Debug().Str("ref", ref.String()).Str("url", target).Msg("Fetching page")

	req, err := fhttp.NewRequest(fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("source: create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		// Transport-level failures (resets, handshake timeouts) are worth
		// another attempt; the caller's retrier decides how many.
		return nil, &domain.RetryableError{Err: fmt.Errorf("source: %s: %w", ref, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == fhttp.StatusNotFound:
		return nil, fmt.Errorf("source: %s: %w", ref, domain.ErrNotFound)
	case resp.StatusCode == fhttp.StatusTooManyRequests:
		return nil, &domain.RetryableError{
			Err:        fmt.Errorf("source: %s: %w", ref, domain.ErrRateLimited),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return nil, &domain.RetryableError{
			Err: fmt.Errorf("source: %s: HTTP %d", ref, resp.StatusCode),
		}
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("source: %s: HTTP %d", ref, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RetryableError{Err: fmt.Errorf("source: %s: read body: %w", ref, err)}
	}

	fields, err := flattenJSON(body)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", ref, err)
	}
	return fields, nil
}

// Close releases client resources. The underlying tls client holds no
// closable state.
func (s *FeedSource) Close() error {
	return nil
}

func (s *FeedSource) pageURL(ref domain.PageRef) string {
	if ref.URL != "" {
		return ref.URL
	}
	// Feed ids may carry path separators (round pages are
	// country/competition/round); escape each segment on its own.
	segments := strings.Split(ref.ID, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s.json", s.baseURL, string(ref.Kind), strings.Join(segments, "/"))
}

// flattenJSON decodes a flat JSON object into raw fields. Scalar values are
// stringified; arrays of scalars join with commas, which is how id lists
// travel through the pipeline. Nested objects are rejected.
func flattenJSON(body []byte) (domain.RawFields, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode page body: %w", err)
	}

	fields := make(domain.RawFields, len(raw))
	for k, v := range raw {
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = s
	}
	return fields, nil
}

func stringify(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := stringify(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return seconds
	}
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		if d := time.Until(t); d > 0 {
			return int(d.Seconds())
		}
	}
	return 0
}

var _ domain.PageSource = (*FeedSource)(nil)
