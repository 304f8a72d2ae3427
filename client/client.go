// Package client calls a remote planning service over HTTP. A *Client can
// stand in for *service.Service wherever only the planning calls are needed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"artillery-planner/api"
	"artillery-planner/ballistics"
	"artillery-planner/catalog"
	"artillery-planner/game"
	"artillery-planner/grid"
	"artillery-planner/planner"
	"artillery-planner/service"
	"artillery-planner/store"
)

// Client handles communication with the planning service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Calculate(ctx context.Context, emitter, target grid.WorldPos, weaponID string, wind *ballistics.Wind) (ballistics.Solution, error) {
	var sol ballistics.Solution
	err := c.do(ctx, http.MethodPost, "/api/calculate", api.CalculateRequest{
		Emitter:  &emitter,
		Target:   &target,
		WeaponID: weaponID,
		Wind:     wind,
	}, &sol)
	return sol, err
}

// Calculator adapts the client to the planner's firing-solution requests.
func (c *Client) Calculator() planner.Calculator {
	return planner.CalculatorFunc(func(ctx context.Context, key planner.SolutionKey) (ballistics.Solution, error) {
		return c.Calculate(ctx, key.Emitter, key.Target, key.WeaponID, key.WindInput())
	})
}

func (c *Client) Catalog(ctx context.Context) (service.Catalog, error) {
	var cat service.Catalog
	err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &cat)
	return cat, err
}

func (c *Client) Maps(ctx context.Context, activeOnly bool) ([]catalog.Map, error) {
	var maps []catalog.Map
	err := c.do(ctx, http.MethodGet, "/api/maps?activeOnly="+strconv.FormatBool(activeOnly), nil, &maps)
	return maps, err
}

func (c *Client) Weapons(ctx context.Context, faction string) ([]catalog.Weapon, error) {
	var ws []catalog.Weapon
	err := c.do(ctx, http.MethodGet, "/api/weapons?faction="+url.QueryEscape(faction), nil, &ws)
	return ws, err
}

func (c *Client) CreatePlan(ctx context.Context, req service.PlanRequest) (store.Plan, error) {
	var p store.Plan
	err := c.do(ctx, http.MethodPost, "/api/plans", req, &p)
	return p, err
}

func (c *Client) FetchPlan(ctx context.Context, id string) (store.Plan, error) {
	var p store.Plan
	err := c.do(ctx, http.MethodGet, "/api/plans/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) TrackPlacement(ctx context.Context, kind game.Kind, weaponID string) error {
	return c.do(ctx, http.MethodPost, "/api/track/"+kind.String(), api.TrackRequest{WeaponID: weaponID}, nil)
}

func (c *Client) Stats(ctx context.Context) (service.Stats, error) {
	var st service.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &st)
	return st, err
}

// do sends body as JSON and decodes the response into out when out is not
// nil. Error responses come back wrapping the matching service or store
// error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = service.ErrValidation
	case http.StatusNotFound:
		kind = store.ErrNotFound
	default:
		return fmt.Errorf("request returned status %d: %s", resp.StatusCode, msg)
	}
	return &StatusError{Code: resp.StatusCode, Message: msg, kind: kind}
}

// StatusError is a rejected request.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }
