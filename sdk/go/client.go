package coachlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Coachline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Expectation is the API expectation model.
type Expectation struct {
	ID           int     `json:"id"`
	ResourceID   int     `json:"resource_id"`
	Performance  float64 `json:"performance"`
	OneToOne     float64 `json:"one_to_one"`
	SideBySide   float64 `json:"side_by_side"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Type         string  `json:"type"`
	Active       bool    `json:"active"`
	CreatedBy    int     `json:"created_by"`
	CreatedDate  string  `json:"created_date"`
	ModifiedBy   int     `json:"modified_by"`
	ModifiedDate string  `json:"modified_date"`
}

// ExpectationInput is the mutable part of an expectation.
type ExpectationInput struct {
	ResourceID  int     `json:"resource_id"`
	Performance float64 `json:"performance"`
	OneToOne    float64 `json:"one_to_one"`
	SideBySide  float64 `json:"side_by_side"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Type        string  `json:"type"`
	Active      bool    `json:"active"`
}

// Form is the API form model.
type Form struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
	Hidden  bool   `json:"hidden"`
}

// Event is an audit log entry.
type Event struct {
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Actor      string `json:"actor"`
	Payload    string `json:"payload_json"`
}

// WhoAmI describes the authenticated principal.
type WhoAmI struct {
	Subject     string   `json:"subject"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// APIError wraps non-2xx responses and carries the decoded envelope when
// the body parses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ConflictingID returns the conflicting expectation id from a
// conflicting_expectation error, if present.
func (e *APIError) ConflictingID() (int, bool) {
	if e.Code != "conflicting_expectation" || e.Details == nil {
		return 0, false
	}
	if v, ok := e.Details["conflicting_id"].(float64); ok {
		return int(v), true
	}
	return 0, false
}

// AddExpectation creates an expectation and returns its assigned id.
func (c *Client) AddExpectation(ctx context.Context, in ExpectationInput) (int, error) {
	var resp struct {
		ID int `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "v0/expectations", in, &resp)
	return resp.ID, err
}

// UpdateExpectation replaces the mutable fields of an expectation.
func (c *Client) UpdateExpectation(ctx context.Context, id int, in ExpectationInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("v0/expectations/%d", id), in, nil)
}

// SetExpectationStatus activates or archives an expectation.
func (c *Client) SetExpectationStatus(ctx context.Context, id int, active bool) error {
	body := map[string]any{"active": active}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("v0/expectations/%d/status", id), body, nil)
}

// ListExpectations returns all expectations.
func (c *Client) ListExpectations(ctx context.Context) ([]Expectation, error) {
	var resp []Expectation
	err := c.do(ctx, http.MethodGet, "v0/expectations", nil, &resp)
	return resp, err
}

// GetExpectation returns one expectation by id.
func (c *Client) GetExpectation(ctx context.Context, id int) (Expectation, error) {
	var resp Expectation
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/expectations/%d", id), nil, &resp)
	return resp, err
}

// CreateForm creates a form and returns its id.
func (c *Client) CreateForm(ctx context.Context, name string) (int, error) {
	var resp struct {
		ID int `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "v0/forms", map[string]any{"name": name}, &resp)
	return resp.ID, err
}

// ListForms returns all forms.
func (c *Client) ListForms(ctx context.Context) ([]Form, error) {
	var resp []Form
	err := c.do(ctx, http.MethodGet, "v0/forms", nil, &resp)
	return resp, err
}

// Events returns recent audit events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/log"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Me returns the authenticated principal.
func (c *Client) Me(ctx context.Context) (WhoAmI, error) {
	var resp WhoAmI
	err := c.do(ctx, http.MethodGet, "v0/me", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
