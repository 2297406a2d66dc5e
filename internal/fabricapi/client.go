package fabricapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/observability"
)

const DefaultBaseURL = "https://api.fabric.microsoft.com/v1"

const maxErrorBody = 512

var (
	ErrNotFound     = errors.New("fabricapi: not found")
	ErrConflict     = errors.New("fabricapi: conflict")
	ErrForbidden    = errors.New("fabricapi: forbidden")
	ErrUnauthorized = errors.New("fabricapi: unauthorized")
)

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// API is the remote capability surface consumed by the reconcilers and the
// materializer. *Client implements it; tests substitute fakes.
type API interface {
	GetWorkspace(ctx context.Context, id string) (Workspace, error)
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	CreateWorkspace(ctx context.Context, displayName, capacityID string) (Workspace, error)
	ListRoleAssignments(ctx context.Context, workspaceID string) ([]RoleAssignment, error)
	CreateRoleAssignment(ctx context.Context, workspaceID string, principal Principal, role string) error
	CreateItem(ctx context.Context, workspaceID string, req ItemRequest) error
}

// APIError carries the status and a body snippet from a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fabricapi: status %d: %s", e.Status, e.Body)
}

// Is maps well-known statuses onto the package sentinels so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// Client issues authenticated calls against one control-plane base URL with a
// fixed per-call timeout.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	log     zerolog.Logger
}

// Option adjusts Client construction.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient constructs a client bound to the public control plane; options
// override the base URL and timeout (tests point it at an httptest server).
func NewClient(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	var ws Workspace
	err := c.do(ctx, http.MethodGet, "/workspaces/"+id, nil, &ws)
	return ws, err
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var list workspaceList
	if err := c.do(ctx, http.MethodGet, "/workspaces", nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

func (c *Client) CreateWorkspace(ctx context.Context, displayName, capacityID string) (Workspace, error) {
	body := createWorkspaceRequest{
		DisplayName: displayName,
		CapacityID:  capacityID,
		Description: fmt.Sprintf("Workspace created for %s", displayName),
	}
	var ws Workspace
	err := c.do(ctx, http.MethodPost, "/workspaces", body, &ws)
	return ws, err
}

func (c *Client) ListRoleAssignments(ctx context.Context, workspaceID string) ([]RoleAssignment, error) {
	var list roleAssignmentList
	if err := c.do(ctx, http.MethodGet, "/workspaces/"+workspaceID+"/roleAssignments", nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

func (c *Client) CreateRoleAssignment(ctx context.Context, workspaceID string, principal Principal, role string) error {
	body := createRoleAssignmentRequest{Principal: principal, Role: role}
	return c.do(ctx, http.MethodPost, "/workspaces/"+workspaceID+"/roleAssignments", body, nil)
}

func (c *Client) CreateItem(ctx context.Context, workspaceID string, req ItemRequest) error {
	return c.do(ctx, http.MethodPost, "/workspaces/"+workspaceID+"/items", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fabricapi: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.RecordAPICall(method, path, 0, time.Since(start))
		return fmt.Errorf("fabricapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	observability.RecordAPICall(method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("api call rejected")
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("fabricapi: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
