// Package ltm implements the Membership Fetcher: a token-authenticated
// REST client against the LTM control API, plus a per-pool poller that
// reconciles authoritative membership into the pool store.
package ltm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// refreshMargin is how far ahead of a token's expiry the client proactively
// re-logs in, rather than waiting to be rejected with 401.
const refreshMargin = 30 * time.Second

// token holds the live LTM session token and its expiry.
type token struct {
	value   string
	expires time.Time
}

func (t token) validAt(now time.Time) bool {
	return t.value != "" && now.Before(t.expires.Add(-refreshMargin))
}

// Client talks to the LTM control API: token login and pool member listing.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	mu  sync.Mutex
	tok token
}

// New builds an LTM client for host:port, authenticating with username and
// password (the latter resolved by the caller from its configured env var).
func New(host string, port int, username, password string) *Client {
	return &Client{
		baseURL:  fmt.Sprintf("https://%s:%d", host, port),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in_seconds"`
}

// login authenticates and stores the new token, regardless of whether a
// prior one was still nominally valid.
func (c *Client) login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{Username: c.username, Password: c.password})
	if err != nil {
		return fmt.Errorf("marshaling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mgmt/shared/authn/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logging in to LTM: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("LTM login failed (HTTP %d): %s", resp.StatusCode, string(data))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}

	c.mu.Lock()
	c.tok = token{value: lr.Token, expires: time.Now().Add(time.Duration(lr.ExpiresIn) * time.Second)}
	c.mu.Unlock()
	return nil
}

// ensureToken logs in if the current token is missing or near expiry.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	valid := c.tok.validAt(time.Now())
	c.mu.Unlock()
	if valid {
		return nil
	}
	return c.login(ctx)
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tok.value
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.tok = token{}
	c.mu.Unlock()
}

// MemberDTO is one endpoint as reported by the LTM API.
type MemberDTO struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

type membersResponse struct {
	Members []MemberDTO `json:"members"`
}

// ListMembers fetches the authoritative endpoint set for a pool, refreshing
// the auth token proactively and retrying once after a 401.
func (c *Client) ListMembers(ctx context.Context, partition, name string) ([]MemberDTO, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	members, status, err := c.listMembersOnce(ctx, partition, name)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.dropToken()
		if err := c.ensureToken(ctx); err != nil {
			return nil, fmt.Errorf("re-authenticating after 401: %w", err)
		}
		members, status, err = c.listMembersOnce(ctx, partition, name)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("LTM API error (HTTP %d) listing members for %s/%s", status, partition, name)
	}
	return members, nil
}

func (c *Client) listMembersOnce(ctx context.Context, partition, name string) ([]MemberDTO, int, error) {
	path := fmt.Sprintf("/mgmt/tm/ltm/pool/~%s~%s/members", partition, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building member-list request: %w", err)
	}
	req.Header.Set("X-F5-Auth-Token", c.currentToken())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("listing members for %s/%s: %w", partition, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, nil
	}

	var mr membersResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding member list for %s/%s: %w", partition, name, err)
	}
	return mr.Members, resp.StatusCode, nil
}

// Logout best-effort deletes the live token at shutdown.
func (c *Client) Logout(ctx context.Context) {
	tok := c.currentToken()
	if tok == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/mgmt/shared/authz/tokens/"+tok, nil)
	if err != nil {
		return
	}
	req.Header.Set("X-F5-Auth-Token", tok)
	resp, err := c.http.Do(req)
	if err == nil {
		resp.Body.Close()
	}
	c.dropToken()
}
