// Package backend talks to the scheduling backend that owns bay availability.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logx "github.com/bayline/server/pkg/logger"
)

// Command is the free-text instruction the backend understands.
type Command string

const (
	AvailabilityToday    Command = "availability_today"
	AvailabilityTomorrow Command = "availability_tomorrow"
	AvailabilitySpecific Command = "availability_specific"
)

// DateLayout is the wire format of the optional date field.
const DateLayout = "2006-01-02"

const (
	msgInvalidJSON  = "Invalid JSON response from scheduling backend."
	msgUnreachable  = "Scheduling backend is unreachable."
	msgBadStatusFmt = "Scheduling backend returned status code %d"
)

// Result is either an opaque JSON payload or a human-readable error.
type Result struct {
	Payload json.RawMessage
	Err     string
	Status  string // ok, unreachable, bad_status, bad_json, backend_error
}

// OK reports whether the backend produced a usable payload.
func (r Result) OK() bool {
	return r.Err == ""
}

// FunctionResponse renders the result as the function-result turn content.
func (r Result) FunctionResponse() string {
	if !r.OK() {
		return "Error: " + r.Err
	}
	return string(r.Payload)
}

// Observer receives one call per query with the result status.
type Observer interface {
	ObserveBackendQuery(command, status string)
}

type requestMessage struct {
	Text string `json:"text"`
	Date string `json:"date,omitempty"`
}

type requestEvent struct {
	Message requestMessage `json:"message"`
}

type requestBody struct {
	Events []requestEvent `json:"events"`
}

// Gateway is a synchronous HTTP client for the scheduling backend.
// Query never returns an error; every failure becomes an error Result.
type Gateway struct {
	url      string
	client   *http.Client
	observer Observer
}

type Option func(*Gateway)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// WithTimeout sets a client timeout; zero keeps the client default.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			c := *g.client
			c.Timeout = d
			g.client = &c
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		g.observer = o
	}
}

func NewGateway(url string, opts ...Option) *Gateway {
	g := &Gateway{url: url, client: &http.Client{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Query posts cmd (and date when non-nil) and normalizes the response.
func (g *Gateway) Query(ctx context.Context, cmd Command, date *time.Time) Result {
	res := g.query(ctx, cmd, date)
	if g.observer != nil {
		g.observer.ObserveBackendQuery(string(cmd), res.Status)
	}
	return res
}

func (g *Gateway) query(ctx context.Context, cmd Command, date *time.Time) Result {
	msg := requestMessage{Text: string(cmd)}
	if date != nil {
		msg.Date = date.Format(DateLayout)
	}
	body, err := json.Marshal(requestBody{Events: []requestEvent{{Message: msg}}})
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("command", string(cmd)).Msg("failed to marshal backend request")
		return Result{Err: msgUnreachable, Status: "unreachable"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("failed to build backend request")
		return Result{Err: msgUnreachable, Status: "unreachable"}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("command", string(cmd)).Msg("scheduling backend unreachable")
		return Result{Err: msgUnreachable, Status: "unreachable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		logx.Ctx(ctx).Warn().Int("status", resp.StatusCode).Str("command", string(cmd)).Msg("scheduling backend bad status")
		return Result{Err: fmt.Sprintf(msgBadStatusFmt, resp.StatusCode), Status: "bad_status"}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("failed to read backend response")
		return Result{Err: msgUnreachable, Status: "unreachable"}
	}
	return decode(raw)
}

// decode validates the payload and surfaces an embedded "error" field.
func decode(raw []byte) Result {
	var compact bytes.Buffer
	if err := json.Compact(&compact, bytes.TrimSpace(raw)); err != nil || compact.Len() == 0 {
		return Result{Err: msgInvalidJSON, Status: "bad_json"}
	}

	var probe map[string]json.RawMessage
	if json.Unmarshal(compact.Bytes(), &probe) == nil {
		if e, ok := probe["error"]; ok {
			return Result{Err: errorText(e), Status: "backend_error"}
		}
	}
	return Result{Payload: json.RawMessage(compact.Bytes()), Status: "ok"}
}

func errorText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return string(raw)
}
