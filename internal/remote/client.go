// Package remote implements store.Store against the tracker's REST API.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"goaltracker/internal/models"
	"goaltracker/internal/store"
	"goaltracker/internal/wire"
)

// Client talks to the /api surface served by the tracker server.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

var _ store.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetries sets how many times the transport retries a failed request
// before reporting it. The default is no retries.
func WithRetries(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

// WithLogger routes transport logs to logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Client) { c.http.Logger = leveledLogger{logger} }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http.HTTPClient = hc }
}

// New creates a client for the API rooted at baseURL, for example
// "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used for later requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends one request and decodes the envelope's data into out. Transport
// failures and unexpected statuses come back as ConnectivityError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var payload any
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		payload = raw
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &models.ConnectivityError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.ConnectivityError{Op: op, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decodeErr != nil {
			return &models.ConnectivityError{Op: op, Err: fmt.Errorf("malformed response: %w", decodeErr)}
		}
		if out == nil || len(env.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &models.ConnectivityError{Op: op, Err: fmt.Errorf("malformed response data: %w", err)}
		}
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &models.ValidationError{Msg: messageOr(env.Error, "invalid request")}
	case resp.StatusCode == http.StatusNotFound:
		return &models.NotFoundError{Kind: "resource", ID: path}
	case resp.StatusCode == http.StatusConflict:
		return &models.ConflictError{Msg: messageOr(env.Error, "conflict")}
	default:
		return &models.ConnectivityError{
			Op:  op,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, messageOr(env.Error, http.StatusText(resp.StatusCode))),
		}
	}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// notFound rewrites a generic 404 into one naming the missing record.
func notFound(err error, kind, id string) error {
	if models.IsNotFound(err) {
		return &models.NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// Ping checks connectivity the same way a session does at start-up.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/statistics", nil, nil)
}

// ListTasks fetches tasks matching filter.
func (c *Client) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Priority != "" {
		q.Set("priority", string(filter.Priority))
	}
	if filter.GoalID != "" {
		q.Set("goal_id", filter.GoalID)
	}
	if filter.IsTemplate != nil {
		q.Set("is_template", strconv.FormatBool(*filter.IsTemplate))
	}
	if filter.ParentTemplateID != "" {
		q.Set("parent_task_id", filter.ParentTemplateID)
	}

	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var records []wire.TaskRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return wire.TasksFromRecords(records), nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var rec wire.TaskRecord
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, notFound(err, "task", id)
	}
	task := wire.TaskFromRecord(rec)
	return &task, nil
}

// CreateTask stores a new task.
func (c *Client) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	var rec wire.TaskRecord
	if err := c.do(ctx, http.MethodPost, "/tasks", wire.TaskToRecord(*task), &rec); err != nil {
		return nil, err
	}
	created := wire.TaskFromRecord(rec)
	return &created, nil
}

// UpdateTask sends the set fields of patch.
func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}
	var rec wire.TaskRecord
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), wire.TaskPatchToMap(patch), &rec); err != nil {
		return nil, notFound(err, "task", id)
	}
	task := wire.TaskFromRecord(rec)
	return &task, nil
}

// DeleteTask removes one task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return notFound(c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil), "task", id)
}

// ListGoals fetches all goals.
func (c *Client) ListGoals(ctx context.Context) ([]models.Goal, error) {
	var records []wire.GoalRecord
	if err := c.do(ctx, http.MethodGet, "/goals", nil, &records); err != nil {
		return nil, err
	}
	return wire.GoalsFromRecords(records), nil
}

// GetGoal fetches one goal.
func (c *Client) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	var rec wire.GoalRecord
	if err := c.do(ctx, http.MethodGet, "/goals/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, notFound(err, "goal", id)
	}
	goal := wire.GoalFromRecord(rec)
	return &goal, nil
}

// CreateGoal stores a new goal.
func (c *Client) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	var rec wire.GoalRecord
	if err := c.do(ctx, http.MethodPost, "/goals", wire.GoalToRecord(*goal), &rec); err != nil {
		return nil, err
	}
	created := wire.GoalFromRecord(rec)
	return &created, nil
}

// UpdateGoal sends the set fields of patch.
func (c *Client) UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) (*models.Goal, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}
	var rec wire.GoalRecord
	if err := c.do(ctx, http.MethodPut, "/goals/"+url.PathEscape(id), wire.GoalPatchToMap(patch), &rec); err != nil {
		return nil, notFound(err, "goal", id)
	}
	goal := wire.GoalFromRecord(rec)
	return &goal, nil
}

// DeleteGoal removes one goal.
func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return notFound(c.do(ctx, http.MethodDelete, "/goals/"+url.PathEscape(id), nil, nil), "goal", id)
}

// GetSettings fetches the settings document.
func (c *Client) GetSettings(ctx context.Context) (models.Settings, error) {
	settings := models.Settings{}
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// PutSetting stores one setting.
func (c *Client) PutSetting(ctx context.Context, key string, value any) error {
	body := map[string]any{"setting_key": key, "setting_value": value}
	return c.do(ctx, http.MethodPut, "/settings", body, nil)
}

// GetStatistics fetches the usage counters.
func (c *Client) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	var rec wire.StatisticsRecord
	if err := c.do(ctx, http.MethodGet, "/statistics", nil, &rec); err != nil {
		return nil, err
	}
	stats := wire.StatisticsFromRecord(rec)
	return &stats, nil
}

// UpdateStatistics sends the set fields of patch.
func (c *Client) UpdateStatistics(ctx context.Context, patch models.StatisticsPatch) (*models.Statistics, error) {
	if patch.IsEmpty() {
		return nil, models.NewValidationError("no updatable fields provided")
	}
	var rec wire.StatisticsRecord
	if err := c.do(ctx, http.MethodPatch, "/statistics", wire.StatisticsPatchToMap(patch), &rec); err != nil {
		return nil, err
	}
	stats := wire.StatisticsFromRecord(rec)
	return &stats, nil
}

// ExportAll downloads the full snapshot.
func (c *Client) ExportAll(ctx context.Context) (*models.Snapshot, error) {
	var rec wire.SnapshotRecord
	if err := c.do(ctx, http.MethodGet, "/export", nil, &rec); err != nil {
		return nil, err
	}
	snap := wire.SnapshotFromRecord(rec)
	return &snap, nil
}

// ImportAll uploads a snapshot that replaces the server-side data.
func (c *Client) ImportAll(ctx context.Context, snapshot *models.Snapshot) error {
	return c.do(ctx, http.MethodPost, "/import", wire.SnapshotToRecord(*snapshot), nil)
}
