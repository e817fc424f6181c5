// Package client talks to a roomcal server and keeps a local, reconciled
// copy of one room's events.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roomcal/internal/calendar"
	"roomcal/internal/model"
)

// DefaultTimeout bounds every request made by a Client built without an
// explicit http.Client.
const DefaultTimeout = 15 * time.Second

// ErrFetchFailed wraps any failure to load a room's events.
var ErrFetchFailed = errors.New("failed to fetch events")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Ack is the body of a successful delete.
type Ack struct {
	Message string `json:"message"`
}

// Client is a thin JSON client for the REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL. A nil httpClient gets one with
// DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// FetchEvents loads every event of one room.
func (c *Client) FetchEvents(ctx context.Context, roomID int) ([]model.Event, error) {
	q := url.Values{"roomId": {strconv.Itoa(roomID)}}
	var evs []model.Event
	if err := c.do(ctx, http.MethodGet, "/api/events?"+q.Encode(), nil, &evs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return evs, nil
}

// GetEvent loads a single event.
func (c *Client) GetEvent(ctx context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := c.do(ctx, http.MethodGet, "/api/events/"+url.PathEscape(id), nil, &ev)
	return ev, err
}

// CreateEvent creates a new event.
func (c *Client) CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error) {
	var ev model.Event
	err := c.do(ctx, http.MethodPost, "/api/events", in, &ev)
	return ev, err
}

// updateBody carries the id the legacy upsert endpoint keys updates on.
type updateBody struct {
	ID string `json:"_id"`
	model.EventInput
}

// UpdateEvent updates an existing event through the upsert endpoint. The
// id always travels with the payload so the server never mistakes an
// edit for a create.
func (c *Client) UpdateEvent(ctx context.Context, id string, in model.EventInput) (model.Event, error) {
	if id == "" {
		return model.Event{}, model.Invalid("id", "is required for an update")
	}
	var ev model.Event
	err := c.do(ctx, http.MethodPost, "/api/events", updateBody{ID: id, EventInput: in}, &ev)
	return ev, err
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id string) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodDelete, "/api/events/"+url.PathEscape(id), nil, &ack)
	return ack, err
}

// SignIn exchanges a Google access token for the stored user.
func (c *Client) SignIn(ctx context.Context, credential string) (model.AuthResult, error) {
	var res model.AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/google", map[string]string{"credential": credential}, &res)
	return res, err
}

// Rooms lists the configured rooms.
func (c *Client) Rooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := c.do(ctx, http.MethodGet, "/api/rooms", nil, &rooms)
	return rooms, err
}

// View loads a computed calendar page. A zero date means today on the
// server.
func (c *Client) View(ctx context.Context, roomID int, mode calendar.ViewMode, date model.Date) (calendar.View, error) {
	q := url.Values{
		"roomId": {strconv.Itoa(roomID)},
		"view":   {string(mode)},
	}
	if !date.IsZero() {
		q.Set("date", date.String())
	}
	var v calendar.View
	err := c.do(ctx, http.MethodGet, "/api/calendar?"+q.Encode(), nil, &v)
	return v, err
}

// ExportICS downloads a room as iCalendar.
func (c *Client) ExportICS(ctx context.Context, roomID int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rooms/"+strconv.Itoa(roomID)+"/calendar.ics", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, decodeAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(data))
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}
