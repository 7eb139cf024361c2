package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"
)

const (
	apiKeyHeader = "apikey"

	// refreshLeeway triggers a silent token refresh slightly before the
	// access token actually expires.
	refreshLeeway = time.Minute

	readRetries = 3
)

// RESTClient talks to the hosted data platform over its REST surface:
// per-table endpoints under /rest/v1 with query-parameter filters, and the
// token endpoints under /auth/v1.
type RESTClient struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewRESTClient(baseURL, apiKey string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetSession installs previously obtained tokens (restored session).
func (c *RESTClient) SetSession(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *RESTClient) SignIn(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}

	var tokens tokenResponse
	err = c.call(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=password", body, &tokens, "")
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	c.SetSession(tokens.AccessToken, tokens.RefreshToken)
	return nil
}

// refreshIfNeeded renews the session when the access token is expired or
// about to expire. The expiry is read from the token's claims without
// signature verification; the server remains the authority, this is only a
// local heuristic to avoid a guaranteed 401 round trip.
func (c *RESTClient) refreshIfNeeded(ctx context.Context) error {
	c.mu.Lock()
	access, refresh := c.accessToken, c.refreshToken
	c.mu.Unlock()

	if access == "" || refresh == "" {
		return nil
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > refreshLeeway {
		return nil
	}

	body, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		return err
	}

	var tokens tokenResponse
	err = c.call(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=refresh_token", body, &tokens, "")
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	c.SetSession(tokens.AccessToken, tokens.RefreshToken)
	return nil
}

func (c *RESTClient) Ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, c.baseURL+"/auth/v1/health", nil, nil, "")
}

func (c *RESTClient) Select(ctx context.Context, table string, since time.Time, limit int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "updated_at.desc")
	q.Set("limit", strconv.Itoa(limit))
	if !since.IsZero() {
		q.Set("updated_at", "gt."+since.UTC().Format(time.RFC3339Nano))
	}
	endpoint := c.baseURL + "/rest/v1/" + table + "?" + q.Encode()

	var rows []json.RawMessage
	// reads are idempotent, so transient failures get a bounded retry here
	err := retry.Do(ctx, retry.WithMaxRetries(readRetries, retry.NewFibonacci(200*time.Millisecond)), func(ctx context.Context) error {
		rows = nil
		err := c.authedCall(ctx, http.MethodGet, endpoint, nil, &rows)
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return rows, nil
}

func (c *RESTClient) Insert(ctx context.Context, table string, record json.RawMessage) error {
	// writes get a single attempt; replay on the next drain handles failures
	err := c.authedCall(ctx, http.MethodPost, c.baseURL+"/rest/v1/"+table, record, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (c *RESTClient) Update(ctx context.Context, table string, id string, record json.RawMessage) error {
	endpoint := c.baseURL + "/rest/v1/" + table + "?id=eq." + url.QueryEscape(id)
	if err := c.authedCall(ctx, http.MethodPatch, endpoint, record, nil); err != nil {
		return fmt.Errorf("update %s/%s: %w", table, id, err)
	}
	return nil
}

func (c *RESTClient) Exists(ctx context.Context, table string, id string) (bool, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")
	endpoint := c.baseURL + "/rest/v1/" + table + "?" + q.Encode()

	var rows []json.RawMessage
	if err := c.authedCall(ctx, http.MethodGet, endpoint, nil, &rows); err != nil {
		return false, fmt.Errorf("check %s/%s: %w", table, id, err)
	}
	return len(rows) > 0, nil
}

func (c *RESTClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// authedCall refreshes the session if needed and attaches the bearer token.
func (c *RESTClient) authedCall(ctx context.Context, method, endpoint string, body json.RawMessage, out any) error {
	if err := c.refreshIfNeeded(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	return c.call(ctx, method, endpoint, body, out, token)
}

func (c *RESTClient) call(ctx context.Context, method, endpoint string, body []byte, out any, token string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		// 400/403/409/422: the server refused this payload or the caller's
		// role; repeating the identical request cannot succeed
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, string(msg))
	}
}
