// Package client talks to the draft HTTP API on behalf of the editor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pdf-form-drafts/internal/domain"
	apperrors "pdf-form-drafts/pkg/errors"
)

const (
	DefaultTimeout = 30 * time.Second
	ExportTimeout  = 2 * time.Minute
)

// DraftsClient calls the /api/v1/drafts endpoints.
type DraftsClient struct {
	baseURL      string
	token        string
	userID       string
	defaultHTTP  *http.Client
	exportClient *http.Client
}

// Option configures a DraftsClient.
type Option func(*DraftsClient)

// WithToken sends "Authorization: Bearer <token>".
func WithToken(token string) Option { return func(c *DraftsClient) { c.token = token } }

// WithUserID sends X-User-Id, for servers running with header auth.
func WithUserID(id string) Option { return func(c *DraftsClient) { c.userID = id } }

// WithHTTPClient replaces both underlying HTTP clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *DraftsClient) {
		c.defaultHTTP = hc
		c.exportClient = hc
	}
}

// NewDraftsClient creates a client for the API rooted at baseURL (scheme and host,
// optionally a path prefix, without /api/v1).
func NewDraftsClient(baseURL string, opts ...Option) *DraftsClient {
	c := &DraftsClient{
		baseURL:      baseURL,
		defaultHTTP:  &http.Client{Timeout: DefaultTimeout},
		exportClient: &http.Client{Timeout: ExportTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *DraftsClient) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = u.Path + "/api/v1" + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *DraftsClient) do(hc *http.Client, req *http.Request, out interface{}) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *DraftsClient) doBytes(req *http.Request) ([]byte, error) {
	resp, err := c.defaultHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// decodeError maps an error response back onto the application error taxonomy.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apperrors.NewValidationError(msg)
	case http.StatusNotFound:
		return apperrors.NewNotFoundError(msg)
	case http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError(msg)
	case http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError(msg)
	default:
		return apperrors.NewInternalError(msg, fmt.Errorf("status %d", resp.StatusCode))
	}
}

func (c *DraftsClient) CreateDraft(ctx context.Context, in domain.CreateDraftRequest) (*domain.DraftSummary, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/drafts", nil, in)
	if err != nil {
		return nil, err
	}
	var out domain.DraftSummary
	if err := c.do(c.defaultHTTP, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DraftsClient) ListDrafts(ctx context.Context, templateID string) ([]domain.DraftSummary, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/drafts", url.Values{"template_id": {templateID}}, nil)
	if err != nil {
		return nil, err
	}
	var out []domain.DraftSummary
	if err := c.do(c.defaultHTTP, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DraftsClient) GetDraft(ctx context.Context, draftID string) (*domain.DraftDetail, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/drafts/"+url.PathEscape(draftID), nil, nil)
	if err != nil {
		return nil, err
	}
	var out domain.DraftDetail
	if err := c.do(c.defaultHTTP, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DraftsClient) GetDrawing(ctx context.Context, draftID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/drafts/"+url.PathEscape(draftID)+"/drawing", nil, nil)
	if err != nil {
		return nil, err
	}
	return c.doBytes(req)
}

func (c *DraftsClient) UpdateDraft(ctx context.Context, draftID string, in domain.UpdateDraftRequest) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/drafts/"+url.PathEscape(draftID), nil, in)
	if err != nil {
		return err
	}
	return c.do(c.defaultHTTP, req, nil)
}

func (c *DraftsClient) ExportDraft(ctx context.Context, draftID string) (*domain.ExportResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/drafts/"+url.PathEscape(draftID)+"/export", nil, nil)
	if err != nil {
		return nil, err
	}
	var out domain.ExportResult
	if err := c.do(c.exportClient, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DraftsClient) GetExportFile(ctx context.Context, draftID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/drafts/"+url.PathEscape(draftID)+"/export/file", nil, nil)
	if err != nil {
		return nil, err
	}
	return c.doBytes(req)
}
