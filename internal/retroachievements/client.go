package retroachievements

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"romverify/internal/catalog"
	"romverify/internal/logging"
)

// ErrMissingAPIKey is returned when a download is needed but no key is set.
var ErrMissingAPIKey = errors.New("retroachievements api key required")

// ErrUnauthorized is returned when the service rejects the API key.
var ErrUnauthorized = errors.New("retroachievements rejected the api key")

// DefaultBaseURL is the public web API root.
const DefaultBaseURL = "https://retroachievements.org/API"

const maxDocumentBytes = 64 << 20

// Client provides access to the RetroAchievements web API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMinInterval spaces consecutive requests at least d apart. Zero disables
// pacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a RetroAchievements client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "retroachievements")
	return client, nil
}

// ConsoleIDsDocument fetches the raw console id table.
func (c *Client) ConsoleIDsDocument(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "API_GetConsoleIDs.php", url.Values{})
}

// GameListDocument fetches the raw game list of one console, restricted to
// games with achievements and including their hashes.
func (c *Client) GameListDocument(ctx context.Context, consoleID int) ([]byte, error) {
	if consoleID <= 0 {
		return nil, fmt.Errorf("invalid console id %d", consoleID)
	}
	params := url.Values{}
	params.Set("i", strconv.Itoa(consoleID))
	params.Set("h", "1")
	params.Set("f", "1")
	return c.get(ctx, "API_GetGameList.php", params)
}

// GetConsoleIDs fetches and decodes the console id table.
func (c *Client) GetConsoleIDs(ctx context.Context) ([]catalog.Console, error) {
	body, err := c.ConsoleIDsDocument(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.DecodeConsoles(bytes.NewReader(body))
}

// GetGameList fetches and decodes the game list of one console.
func (c *Client) GetGameList(ctx context.Context, consoleID int) ([]catalog.Entry, error) {
	body, err := c.GameListDocument(ctx, consoleID)
	if err != nil {
		return nil, err
	}
	return catalog.DecodeEntries(bytes.NewReader(body))
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target, err := url.Parse(c.baseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse retroachievements url: %w", err)
	}
	params.Set("y", c.apiKey)
	target.RawQuery = params.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%s request failed (latency=%v): %w", endpoint, latency, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("retroachievements request",
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%s returned %d: %w", endpoint, resp.StatusCode, ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d (latency=%v)", endpoint, resp.StatusCode, latency)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return body, nil
}
