package api

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

	"github.com/google/uuid"

	"github.com/greenfield-ag/farmtrack-client/pkg/config"
	pkgerrors "github.com/greenfield-ag/farmtrack-client/pkg/errors"
	"github.com/greenfield-ag/farmtrack-client/pkg/logger"
	"github.com/greenfield-ag/farmtrack-client/pkg/metrics"
	"github.com/greenfield-ag/farmtrack-client/pkg/session"
)

var (
	errBaseURLRequired = errors.New("backend base url is required")
	errLoggerRequired  = errors.New("api logger is required")
)

// Envelope is the `{success, data}` wrapper the backend puts around every
// response. Error bodies carry `message` instead of `data`.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// ClientParams groups dependencies for the backend API client.
type ClientParams struct {
	Backend    config.BackendConfig
	Session    *session.Session
	Logger     *logger.Logger
	Metrics    *metrics.APIMetrics
	HTTPClient *http.Client
}

// Client issues REST calls against the farm-management backend with
// centralized auth, logging, idempotency, and error normalization. Both the
// inventory and crop stores share one client, so both talk to the same base
// URL with the same credentials policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	logger     *logger.Logger
	metrics    *metrics.APIMetrics
}

// NewClient validates the wiring and builds the shared backend client.
func NewClient(params ClientParams) (*Client, error) {
	if params.Logger == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(params.Backend.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Backend.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		session:    params.Session,
		logger:     params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// GetList fetches path and decodes the envelope's data array into out, which
// must be a pointer to a slice. A missing or non-array data field is an
// envelope error even when the HTTP exchange succeeded.
func (c *Client) GetList(ctx context.Context, operation, path string, out any) error {
	env, err := c.Do(ctx, operation, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeListData(env, out)
}

// Do performs one request/response exchange and normalizes every failure mode
// to a typed error: transport failures, non-2xx statuses (with or without a
// JSON message body), and success responses whose envelope is malformed.
func (c *Client) Do(ctx context.Context, operation, method, path string, body any) (*Envelope, error) {
	started := time.Now()
	env, err := c.roundTrip(ctx, operation, method, path, body)
	c.metrics.ObserveDuration(operation, time.Since(started))
	if err != nil {
		c.metrics.IncFailure(operation)
		return nil, err
	}
	c.metrics.IncSuccess(operation)
	return env, nil
}

func (c *Client) roundTrip(ctx context.Context, operation, method, path string, body any) (*Envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutating(method) {
		req.Header.Set("Idempotency-Key", newIdempotencyKey(operation))
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	ctx = c.logger.WithRequestID(ctx, requestID)
	c.attachAuth(ctx, req)

	c.log(ctx, "request", operation, map[string]any{"method": method, "path": path})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeTransport, err, "backend request failed")
		c.logFailure(ctx, operation, wrapped)
		return nil, wrapped
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeTransport, err, "read response body")
		c.logFailure(ctx, operation, wrapped)
		return nil, wrapped
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		normalized := c.statusError(resp.StatusCode, raw)
		c.logFailure(ctx, operation, normalized)
		return nil, normalized
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeEnvelope, err, "response is not valid JSON")
		c.logFailure(ctx, operation, wrapped)
		return nil, wrapped
	}
	if !env.Success {
		message := strings.TrimSpace(env.Message)
		if message == "" {
			message = "backend reported failure"
		}
		failure := pkgerrors.New(pkgerrors.CodeEnvelope, message)
		c.logFailure(ctx, operation, failure)
		return nil, failure
	}

	c.log(ctx, "response", operation, map[string]any{"status": resp.StatusCode})
	return &env, nil
}

func (c *Client) attachAuth(ctx context.Context, req *http.Request) {
	if c.session == nil || !c.session.HasToken() {
		return
	}
	if c.session.Expired(time.Now()) {
		c.logger.Warn(ctx, "session token is expired, request will likely be rejected")
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token())
}

// statusError maps a non-2xx response to a typed error, preferring the JSON
// message body when one is present.
func (c *Client) statusError(status int, raw []byte) *pkgerrors.Error {
	code := codeForStatus(status)

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Message) != "" {
		return pkgerrors.New(code, strings.TrimSpace(body.Message))
	}
	return pkgerrors.New(code, fmt.Sprintf("request failed with status %d", status))
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": operation,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("backend %s", operation), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("backend %s", phase))
	}
}

// logFailure records a failed exchange with its domain code and whether the
// caller could safely retry it. The client itself never retries.
func (c *Client) logFailure(ctx context.Context, operation string, err error) {
	fields := map[string]any{"error": err.Error()}
	if typed := pkgerrors.As(err); typed != nil {
		fields["code"] = string(typed.Code())
		fields["retryable"] = pkgerrors.MetadataFor(typed.Code()).Retryable
	}
	c.log(ctx, "error", operation, fields)
}

func decodeListData(env *Envelope, out any) error {
	if env == nil || len(env.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeEnvelope, "response envelope is missing data")
	}
	// json.Unmarshal treats a JSON null as a no-op on the target slice, which
	// would let `data:null` slip through as an empty list.
	trimmed := bytes.TrimSpace(env.Data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return pkgerrors.New(pkgerrors.CodeEnvelope, "response data is not a list")
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeEnvelope, err, "response data is not the expected list")
	}
	return nil
}

// DecodeObject unmarshals the envelope's data field into out for endpoints
// that return a single object.
func DecodeObject(env *Envelope, out any) error {
	if env == nil || len(env.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeEnvelope, "response envelope is missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeEnvelope, err, "response data is not the expected object")
	}
	return nil
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeInternal
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func newIdempotencyKey(operation string) string {
	prefix := strings.TrimSpace(operation)
	if prefix == "" {
		prefix = "ft"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
