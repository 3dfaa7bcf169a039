package api

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

	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
)

// ChatIDHeader carries the id of a newly created conversation
const ChatIDHeader = "X-Chat-Id"

// Client talks to the website-builder backend. All requests share one cookie
// jar so the session cookie set by login is sent everywhere.
type Client struct {
	baseURL *url.URL
	jar     *persistentJar

	// httpClient is used for JSON calls and has a timeout; streamClient has
	// none because streamed replies can run for minutes.
	httpClient   *http.Client
	streamClient *http.Client
}

// Option configures a Client
type Option func(*options)

type options struct {
	cookieFile string
	timeout    time.Duration
	transport  http.RoundTripper
}

// WithCookieFile persists session cookies to path
func WithCookieFile(path string) Option {
	return func(o *options) { o.cookieFile = path }
}

// WithTimeout sets the timeout for non-streaming requests
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport overrides the HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// NewClient creates a backend client for baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	o := options{timeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse api url: %w", err)
	}

	jar, err := newPersistentJar(o.cookieFile, u)
	if err != nil {
		return nil, err
	}

	transport := o.transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:      u,
		jar:          jar,
		httpClient:   &http.Client{Jar: jar, Timeout: o.timeout, Transport: transport},
		streamClient: &http.Client{Jar: jar, Transport: transport},
	}, nil
}

// BaseURL returns the backend URL the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// StreamResponse is an open streamed reply. Callers must Close it.
type StreamResponse struct {
	Body   io.ReadCloser
	Header http.Header
}

// ChatID returns the conversation id assigned by the backend, if any
func (s *StreamResponse) ChatID() string {
	return s.Header.Get(ChatIDHeader)
}

// Close releases the underlying connection
func (s *StreamResponse) Close() error {
	return s.Body.Close()
}

// Explain posts a chat message and returns the streamed reply. An empty
// chatID starts a new conversation.
func (c *Client) Explain(ctx context.Context, chatID, message string) (*StreamResponse, error) {
	path := "/chat/explain"
	if chatID != "" {
		path += "/" + url.PathEscape(chatID)
	}
	return c.stream(ctx, path, models.MessageRequest{Message: message})
}

// EnhancePrompt asks the backend to rewrite a draft prompt, streamed
func (c *Client) EnhancePrompt(ctx context.Context, message string) (*StreamResponse, error) {
	return c.stream(ctx, "/chat/promptEnhance", models.MessageRequest{Message: message})
}

func (c *Client) stream(ctx context.Context, path string, body interface{}) (*StreamResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cache-Control", "no-cache")

	logger.Debugf("📡 POST %s (stream)", path)
	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
		}
	}

	return &StreamResponse{Body: resp.Body, Header: resp.Header}, nil
}

// GenerateCode runs code generation for a prompt in a conversation. A non-2xx
// response is reported with the raw server text.
func (c *Client) GenerateCode(ctx context.Context, chatID, message string) (*models.CodeResponse, error) {
	path := "/chat/code/" + url.PathEscape(chatID)
	req, err := c.newRequest(ctx, http.MethodPost, path, models.MessageRequest{Message: message})
	if err != nil {
		return nil, err
	}

	// Generation can outlast the JSON timeout; the caller's context bounds it
	logger.Debugf("📡 POST %s", path)
	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Server error: %d - %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	var out models.CodeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "Malformed response from server", Err: err}
	}
	return &out, nil
}

// ChatInfo loads a stored conversation
func (c *Client) ChatInfo(ctx context.Context, chatID string) (*models.ChatInfoResponse, error) {
	var out models.ChatInfoResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/info/"+url.PathEscape(chatID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AllChats lists the user's conversations
func (c *Client) AllChats(ctx context.Context) (*models.ChatListResponse, error) {
	var out models.ChatListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/allChats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteChat removes a conversation
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	var out models.MessageResponse
	return c.doJSON(ctx, http.MethodDelete, "/chat/"+url.PathEscape(chatID), nil, &out)
}

// Deploy publishes a file set and returns the hosting response
func (c *Client) Deploy(ctx context.Context, files []models.GeneratedFile) (*models.DeployResponse, error) {
	var out models.DeployResponse
	if err := c.doJSON(ctx, http.MethodPost, "/deploy", models.DeployRequest{Files: files}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAuth returns the current user for the stored session cookie
func (c *Client) CheckAuth(ctx context.Context) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/user/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/user/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session on the backend and drops local cookies. The
// response body is returned even on error so callers can inspect the message.
func (c *Client) Logout(ctx context.Context) (*models.MessageResponse, error) {
	var out models.MessageResponse
	err := c.doJSON(ctx, http.MethodGet, "/user/logout", nil, &out)
	if clearErr := c.jar.clear(); clearErr != nil {
		logger.Warnf("⚠️  Failed to clear cookies: %v", clearErr)
	}
	return &out, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	logger.Debugf("📡 %s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromResponse(resp.StatusCode, data)
		// Still decode so callers can read a message from error bodies
		if out != nil && len(data) > 0 {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: msgSomethingWrong, Err: errors.Join(errors.New("malformed response"), err)}
	}
	return nil
}
