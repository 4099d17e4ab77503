// Package api is a client for the Modelos REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/models"
)

// Client is the Modelos API client
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithLogger attaches a logger used for request diagnostics
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Modelos API client. token may be empty for
// anonymous browsing.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasToken reports whether requests are authenticated
func (c *Client) HasToken() bool {
	return c.token != ""
}

// ListQuery holds the server-side filters for the list endpoint
type ListQuery struct {
	Search  string
	Filters map[string]string
}

// Values encodes the query as URL parameters
func (q ListQuery) Values() url.Values {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	for k, v := range q.Filters {
		if v != "" {
			params.Set(k, v)
		}
	}
	return params
}

// Key returns a stable identifier for the query, used for caching
func (q ListQuery) Key() string {
	params := q.Values()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
		b.WriteByte('&')
	}
	return b.String()
}

// doRequest performs an HTTP request with auth and error handling
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req)
}

// send applies the common headers and executes req
func (c *Client) send(req *http.Request) (*http.Response, error) {
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Debug("request failed", zap.String("request_id", reqID), zap.String("url", req.URL.String()), zap.Error(err))
		return nil, fmt.Errorf("cannot connect to %s. Is the Modelos API running?", c.baseURL)
	}

	c.log.Debug("api request",
		zap.String("request_id", reqID),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

// handleErrorResponse converts HTTP error responses into user-friendly messages
func (c *Client) handleErrorResponse(resp *http.Response) error {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &Error{StatusCode: resp.StatusCode, Message: "authentication failed. Run 'modelosctl login' to refresh your session"}
	case http.StatusForbidden:
		return &Error{StatusCode: resp.StatusCode, Message: "insufficient permissions for this operation"}
	case http.StatusNotFound:
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("Modelos API not found at %s. Check your URL", c.baseURL)}
	case http.StatusBadRequest:
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("bad request: %s", msg)}
	default:
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("API error (status %d): %s", resp.StatusCode, msg)}
	}
}

// call performs a JSON request and decodes the response into out (if non-nil).
// Any status outside expected is converted by handleErrorResponse.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}, expected ...int) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	if !statusIn(resp.StatusCode, expected) {
		return c.handleErrorResponse(resp)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusIn(code int, expected []int) bool {
	for _, e := range expected {
		if code == e {
			return true
		}
	}
	return false
}

func notFound(err error, format string, args ...interface{}) error {
	if IsNotFound(err) {
		return &Error{StatusCode: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
	}
	return err
}

func entryPath(id string) string {
	return "/modelos/" + url.PathEscape(id)
}

// TestConnection tests the connection to the Modelos API
func (c *Client) TestConnection(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/modelos/list", nil, nil, http.StatusOK)
}

// ListEntries retrieves every entry matching the server-side query
func (c *Client) ListEntries(ctx context.Context, q ListQuery) ([]models.Entry, error) {
	path := "/modelos/list"
	if params := q.Values(); len(params) > 0 {
		path += "?" + params.Encode()
	}

	var list models.EntryList
	if err := c.call(ctx, http.MethodGet, path, nil, &list, http.StatusOK); err != nil {
		return nil, err
	}
	if list.Results == nil {
		list.Results = []models.Entry{}
	}
	return list.Results, nil
}

// GetEntry retrieves a single entry by ID
func (c *Client) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	if err := c.call(ctx, http.MethodGet, entryPath(id), nil, &entry, http.StatusOK); err != nil {
		return nil, notFound(err, "entry with ID %s not found", id)
	}
	return &entry, nil
}

// CreateEntry creates a new entry
func (c *Client) CreateEntry(ctx context.Context, entry *models.EntryCreate) (*models.Entry, error) {
	var created models.Entry
	if err := c.call(ctx, http.MethodPost, "/modelos", entry, &created, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateEntry updates an existing entry
func (c *Client) UpdateEntry(ctx context.Context, id string, update *models.EntryUpdate) (*models.Entry, error) {
	var updated models.Entry
	if err := c.call(ctx, http.MethodPut, entryPath(id), update, &updated, http.StatusOK); err != nil {
		return nil, notFound(err, "entry with ID %s not found", id)
	}
	return &updated, nil
}

// DeleteEntry deletes an entry
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	if err := c.call(ctx, http.MethodDelete, entryPath(id), nil, nil, http.StatusNoContent, http.StatusOK); err != nil {
		return notFound(err, "entry with ID %s not found", id)
	}
	return nil
}

// UploadImage uploads the image for an entry as multipart form data
func (c *Client) UploadImage(ctx context.Context, id, filename string, r io.Reader) (*models.ImageUpload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("imagem", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+entryPath(id)+"/imagem", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, notFound(c.handleErrorResponse(resp), "entry with ID %s not found", id)
	}
	defer resp.Body.Close()

	var uploaded models.ImageUpload
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &uploaded, nil
}

// GetImage downloads the image of an entry, returning its bytes and content type
func (c *Client) GetImage(ctx context.Context, id string) ([]byte, string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, entryPath(id)+"/imagem", nil)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", notFound(c.handleErrorResponse(resp), "image for entry %s not found", id)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Login exchanges credentials for a session token
func (c *Client) Login(ctx context.Context, creds *models.Credentials) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", creds, &out, http.StatusOK); err != nil {
		if IsUnauthorized(err) {
			return nil, &Error{StatusCode: http.StatusUnauthorized, Message: "invalid email or password"}
		}
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login response did not include a token")
	}
	return &out, nil
}

// Me retrieves the user the current token belongs to
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetSaved retrieves the IDs of the user's bookmarked entries, oldest bookmark first
func (c *Client) GetSaved(ctx context.Context) ([]string, error) {
	var saved models.SavedList
	if err := c.call(ctx, http.MethodGet, "/usuarios/me/salvos", nil, &saved, http.StatusOK); err != nil {
		return nil, err
	}
	if saved.IDs == nil {
		saved.IDs = []string{}
	}
	return saved.IDs, nil
}

// AddSaved bookmarks an entry
func (c *Client) AddSaved(ctx context.Context, id string) error {
	err := c.call(ctx, http.MethodPost, "/usuarios/me/salvos/"+url.PathEscape(id), nil, nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	return notFound(err, "entry with ID %s not found", id)
}

// RemoveSaved removes an entry from the bookmarks
func (c *Client) RemoveSaved(ctx context.Context, id string) error {
	err := c.call(ctx, http.MethodDelete, "/usuarios/me/salvos/"+url.PathEscape(id), nil, nil,
		http.StatusOK, http.StatusNoContent)
	return notFound(err, "entry with ID %s is not bookmarked", id)
}

// ListUsers retrieves all user accounts
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.call(ctx, http.MethodGet, "/usuarios", nil, &users, http.StatusOK); err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// GetUser retrieves a single user by ID
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodGet, "/usuarios/"+url.PathEscape(id), nil, &user, http.StatusOK); err != nil {
		return nil, notFound(err, "user with ID %s not found", id)
	}
	return &user, nil
}

// CreateUser creates a user account
func (c *Client) CreateUser(ctx context.Context, user *models.UserCreate) (*models.User, error) {
	var created models.User
	if err := c.call(ctx, http.MethodPost, "/usuarios", user, &created, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser updates a user account
func (c *Client) UpdateUser(ctx context.Context, id string, update *models.UserUpdate) (*models.User, error) {
	var updated models.User
	if err := c.call(ctx, http.MethodPut, "/usuarios/"+url.PathEscape(id), update, &updated, http.StatusOK); err != nil {
		return nil, notFound(err, "user with ID %s not found", id)
	}
	return &updated, nil
}

// DeleteUser deletes a user account
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	err := c.call(ctx, http.MethodDelete, "/usuarios/"+url.PathEscape(id), nil, nil, http.StatusNoContent, http.StatusOK)
	return notFound(err, "user with ID %s not found", id)
}
