// Package submit delivers session snapshots to an outbound endpoint. Drafts
// may be sent at any time; final submissions are gated on full validation.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-batchform/pkg/session"
	"github.com/goliatone/go-batchform/pkg/wizard"
)

// Kind distinguishes draft saves from final submissions.
type Kind string

const (
	KindDraft Kind = "draft"
	KindFinal Kind = "final"
)

// IdempotencyHeader carries the per-payload key so retries are deduplicated
// by the receiving endpoint.
const IdempotencyHeader = "Idempotency-Key"

const maxResponse = 1 << 20

// ErrEndpointRequired is returned by NewHTTPSubmitter without an endpoint.
var ErrEndpointRequired = errors.New("submit: endpoint is required")

// Payload is the outbound body.
type Payload struct {
	SessionID      string         `json:"session_id"`
	Kind           Kind           `json:"kind"`
	Values         map[string]any `json:"values"`
	IdempotencyKey string         `json:"-"`
}

// FromSession builds a payload from the flat snapshot of sess.
func FromSession(sess *session.Session, kind Kind) Payload {
	return Payload{
		SessionID:      sess.ID(),
		Kind:           kind,
		Values:         sess.Flatten(),
		IdempotencyKey: uuid.NewString(),
	}
}

// Submitter delivers payloads.
type Submitter interface {
	Submit(ctx context.Context, payload Payload) error
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, payload Payload) error

// Submit delegates to the wrapped function.
func (fn SubmitterFunc) Submit(ctx context.Context, payload Payload) error {
	return fn(ctx, payload)
}

// RejectedError reports a non-2xx response. Errors holds the decoded error
// payload when the endpoint returned one, keyed as the endpoint sent it.
type RejectedError struct {
	Status int
	Errors map[string][]string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submit: endpoint rejected payload with status %d", e.Status)
}

// Option configures an HTTPSubmitter.
type Option func(*HTTPSubmitter)

// WithHTTPClient overrides the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSubmitter) {
		if client != nil {
			s.client = client
		}
	}
}

// WithHeader adds a static request header (authorization, tenant).
func WithHeader(key, value string) Option {
	return func(s *HTTPSubmitter) {
		s.headers.Set(key, value)
	}
}

// WithTimeout caps each request.
func WithTimeout(timeout time.Duration) Option {
	return func(s *HTTPSubmitter) {
		s.timeout = timeout
	}
}

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *HTTPSubmitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// HTTPSubmitter posts payloads as JSON.
type HTTPSubmitter struct {
	endpoint string
	client   *http.Client
	headers  http.Header
	timeout  time.Duration
	logger   *zap.Logger
}

var _ Submitter = (*HTTPSubmitter)(nil)

// NewHTTPSubmitter constructs a submitter posting to endpoint.
func NewHTTPSubmitter(endpoint string, opts ...Option) (*HTTPSubmitter, error) {
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	s := &HTTPSubmitter{
		endpoint: endpoint,
		client:   http.DefaultClient,
		headers:  make(http.Header),
		timeout:  30 * time.Second,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// Submit posts payload. A missing idempotency key is generated so every
// request carries one.
func (s *HTTPSubmitter) Submit(ctx context.Context, payload Payload) error {
	if payload.IdempotencyKey == "" {
		payload.IdempotencyKey = uuid.NewString()
	}
	if payload.Values == nil {
		payload.Values = map[string]any{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("submit: encode payload: %w", err)
	}

	reqCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit: build request: %w", err)
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(IdempotencyHeader, payload.IdempotencyKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit: post %s: %w", s.endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	s.logger.Debug("payload delivered",
		zap.String("session", payload.SessionID),
		zap.String("kind", string(payload.Kind)),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponse))
		return nil
	}

	rejected := &RejectedError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err == nil && len(data) > 0 {
		rejected.Errors = decodeErrors(data)
	}
	return rejected
}

// decodeErrors accepts {"errors": {...}} or a bare map, with string or
// string-list values.
func decodeErrors(data []byte) map[string][]string {
	var envelope struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil
	}
	raw := envelope.Errors
	if raw == nil {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	}

	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			out[key] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			out[key] = []string{single}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Draft sends the current snapshot without validation.
func Draft(ctx context.Context, sess *session.Session, s Submitter) error {
	return s.Submit(ctx, FromSession(sess, KindDraft))
}

// Final validates every mounted field through ctrl and submits only when the
// form is clean. The returned notice names the first failing step otherwise.
func Final(ctx context.Context, ctrl *wizard.Controller, sess *session.Session, s Submitter) (wizard.Notice, error) {
	notice := ctrl.SubmitValidate()
	if !notice.OK {
		return notice, nil
	}
	if err := s.Submit(ctx, FromSession(sess, KindFinal)); err != nil {
		return notice, err
	}
	return notice, nil
}
