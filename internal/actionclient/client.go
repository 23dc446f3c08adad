// Package actionclient is an HTTP client for the multiplexed file-action
// endpoint. It implements filetable.Actions so the file table controller can
// talk to a remote console server.
package actionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/orgdesk/orgdesk/internal/api"
	"github.com/orgdesk/orgdesk/internal/drive"
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// AuthToken is the console JWT sent as a Bearer header.
	AuthToken string

	// AccessToken is the storage credential forwarded in every action body.
	AccessToken string
}

// Client posts action requests to a console server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.RWMutex
	authToken   string
	accessToken string
}

// New creates a new action client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		authToken:   cfg.AuthToken,
		accessToken: cfg.AccessToken,
	}
}

// SetAuthToken sets the JWT auth token for requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

// SetAccessToken sets the storage credential forwarded with each action.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// ListFiles returns the non-folder files visible to the access token.
func (c *Client) ListFiles(ctx context.Context) ([]drive.File, error) {
	env, err := c.do(ctx, api.ActionRequest{Action: api.ActionListFiles})
	if err != nil {
		return nil, err
	}
	return decodeFiles(env.Data)
}

// ListFolders returns the folders visible to the access token.
func (c *Client) ListFolders(ctx context.Context) ([]drive.File, error) {
	env, err := c.do(ctx, api.ActionRequest{Action: api.ActionListFolders})
	if err != nil {
		return nil, err
	}
	return decodeFiles(env.Data)
}

// Rename renames the file with the given ID.
func (c *Client) Rename(ctx context.Context, fileID, newName string) error {
	_, err := c.do(ctx, api.ActionRequest{
		Action:   api.ActionRename,
		FileID:   fileID,
		FileName: newName,
	})
	return err
}

// Delete removes the file with the given ID.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	_, err := c.do(ctx, api.ActionRequest{Action: api.ActionDelete, FileID: fileID})
	return err
}

// FileURL returns a shareable URL for the file with the given ID.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	env, err := c.do(ctx, api.ActionRequest{Action: api.ActionGetURL, FileID: fileID})
	if err != nil {
		return "", err
	}
	return env.URL, nil
}

// Validate checks the given access token by listing files with it. An empty
// token fails immediately without a network call.
func (c *Client) Validate(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return drive.ErrInvalidToken
	}
	_, err := c.doWithToken(ctx, api.ActionRequest{Action: api.ActionListFiles}, accessToken)
	return err
}

// Validator adapts the client to the authguard credential-check surface.
// The candidate token is forwarded instead of the client's configured one.
func (c *Client) Validator() RemoteValidator {
	return RemoteValidator{c: c}
}

// RemoteValidator checks a candidate storage credential against the remote
// action endpoint.
type RemoteValidator struct {
	c *Client
}

// ListFiles lists files using the candidate token.
func (v RemoteValidator) ListFiles(ctx context.Context, token string) ([]drive.File, error) {
	env, err := v.c.doWithToken(ctx, api.ActionRequest{Action: api.ActionListFiles}, token)
	if err != nil {
		return nil, err
	}
	return decodeFiles(env.Data)
}

func (c *Client) do(ctx context.Context, req api.ActionRequest) (*api.Envelope, error) {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	return c.doWithToken(ctx, req, token)
}

func (c *Client) doWithToken(ctx context.Context, req api.ActionRequest, accessToken string) (*api.Envelope, error) {
	req.AccessToken = accessToken

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal action request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/actions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.applyAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", req.Action, err)
	}
	defer resp.Body.Close()

	var env api.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("action %s: decode response: %w", req.Action, err)
	}

	if !env.Success {
		return nil, statusError(resp.StatusCode, env.Message)
	}
	return &env, nil
}

func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

func statusError(code int, message string) error {
	if message == "" {
		message = http.StatusText(code)
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", message, drive.ErrInvalidToken)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", message, drive.ErrNotFound)
	default:
		return errors.New(message)
	}
}

func decodeFiles(data interface{}) ([]drive.File, error) {
	if data == nil {
		return []drive.File{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var files []drive.File
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	return files, nil
}
