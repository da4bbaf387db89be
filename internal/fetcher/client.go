package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
)

var (
	ErrMissingToken = errors.New("missing OSHWA_API_TOKEN")
	ErrNotFound     = errors.New("project not found")
	ErrInvalidID    = errors.New("not an oshwa project id or url")
)

var reOSHWAUID = regexp.MustCompile(`(?i)\b([a-z]{2}[0-9]{6})\b`)

// Page is one slice of the OSHWA project listing.
type Page struct {
	Total int
	Items []json.RawMessage
}

// Client talks to the OSHWA certification API.
type Client struct {
	cfg      config.Config
	http     *resty.Client
	interval Limiter
	quota    *QuotaLimiter
	logger   *log.Logger

	maxRetries uint64
	retryBase  time.Duration
}

func NewClient(cfg config.Config, logger *log.Logger) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.OSHWAAPIToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = time.Duration(cfg.OSHWATimeoutMs) * time.Millisecond

	rc := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(cfg.OSHWAAPIBaseURL, "/")).
		SetHeader("Accept", "application/json")

	return &Client{
		cfg:        cfg,
		http:       rc,
		interval:   NewIntervalLimiter(time.Duration(cfg.OSHWARateLimitInterval) * time.Millisecond),
		quota:      NewQuotaLimiter(100, logger),
		logger:     logger,
		maxRetries: 4,
		retryBase:  250 * time.Millisecond,
	}
}

func (c *Client) FetchPage(ctx context.Context, offset, limit int) (Page, error) {
	body, err := c.fetchJSON(ctx, "/projects", map[string]string{
		"offset": strconv.Itoa(offset),
		"limit":  strconv.Itoa(limit),
	})
	if err != nil {
		return Page{}, err
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return Page{}, fmt.Errorf("oshwa listing without items array")
	}
	page := Page{Total: int(gjson.GetBytes(body, "total").Int())}
	items.ForEach(func(_, item gjson.Result) bool {
		page.Items = append(page.Items, json.RawMessage(item.Raw))
		return true
	})
	return page, nil
}

// FetchProject returns the raw record of one project. The API answers either
// with the object itself or with a one-element array.
func (c *Client) FetchProject(ctx context.Context, uid string) (json.RawMessage, error) {
	body, err := c.fetchJSON(ctx, "/projects/"+uid, nil)
	if err != nil {
		return nil, err
	}
	res := gjson.ParseBytes(body)
	if res.IsArray() {
		res = res.Get("0")
	}
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	return json.RawMessage(res.Raw), nil
}

func (c *Client) fetchJSON(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.OSHWAAPIToken) == "" {
		return nil, ErrMissingToken
	}

	var body []byte
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c.interval.WaitTurn()
		c.quota.WaitTurn()

		resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(path)
		if err != nil {
			return retry.RetryableError(err)
		}
		c.quota.UpdateFromHeaders(resp.Header())

		status := resp.StatusCode()
		if status == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if isRetryableStatus(status) {
			c.logger.Warn("retrying request", "path", path, "status", status)
			return retry.RetryableError(fmt.Errorf("oshwa status %d", status))
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("oshwa api error: status=%d body=%s", status, resp.String())
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ParseProjectID accepts a bare uid or a certification page url.
func ParseProjectID(input string) (string, error) {
	m := reOSHWAUID.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, input)
	}
	return strings.ToUpper(m[1]), nil
}
