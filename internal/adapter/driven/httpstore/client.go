// Package httpstore implements the CredentialStore port against a remote
// credential store service speaking GET/POST /users.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

// ErrUnexpectedStatus is wrapped when the service answers with a status
// other than 200.
var ErrUnexpectedStatus = errors.New("unexpected status from credential service")

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Client)(nil)

// Client talks to the credential store service over HTTP.
type Client struct {
	http     *http.Client
	usersURL string
}

// NewClient creates a Client for the service at baseURL with the following
// transport stack:
//  1. httpcache (ETag revalidation, so an unchanged collection costs a 304)
//  2. net/http default transport
func NewClient(baseURL string) (*Client, error) {
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   10 * time.Second,
	}
	return NewClientWithHTTPClient(httpClient, baseURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parsing base URL: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/users"

	return &Client{
		http:     httpClient,
		usersURL: u.String(),
	}, nil
}

// FetchAll retrieves the full collection with GET /users.
func (c *Client) FetchAll(ctx context.Context) ([]model.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.usersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("fetch credentials", resp)
	}

	var creds []model.Credential
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&creds); err != nil {
		return nil, fmt.Errorf("%w: decode fetch response: %w", driven.ErrMalformedDocument, err)
	}
	if creds == nil {
		creds = []model.Credential{}
	}
	return creds, nil
}

// ReplaceAll sends the full collection with POST /users.
func (c *Client) ReplaceAll(ctx context.Context, creds []model.Credential) error {
	if creds == nil {
		creds = []model.Credential{}
	}
	body, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.usersURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build replace request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("replace credentials", resp)
	}

	var ack struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&ack); err != nil {
		return fmt.Errorf("decode replace response: %w", err)
	}
	if ack.Status != "ok" {
		return fmt.Errorf("replace credentials: service answered status %q", ack.Status)
	}
	return nil
}

// statusError builds an error carrying the status code and, when present,
// the service's JSON error message.
func statusError(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("%s: %w: %d: %s", op, ErrUnexpectedStatus, resp.StatusCode, body.Error)
	}
	return fmt.Errorf("%s: %w: %d", op, ErrUnexpectedStatus, resp.StatusCode)
}
