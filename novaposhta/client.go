package novaposhta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"ttnmanager/metrics"
)

const DefaultAPIURL = "https://api.novaposhta.ua/v2.0/json/"

// Request is the body of every call; the verb is selected by model + method.
type Request struct {
	APIKey           string `json:"apiKey,omitempty"`
	ModelName        string `json:"modelName"`
	CalledMethod     string `json:"calledMethod"`
	MethodProperties any    `json:"methodProperties"`
}

// Envelope is the common response wrapper. Data is decoded by the typed methods.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Errors     Messages        `json:"errors"`
	ErrorCodes Messages        `json:"errorCodes"`
	Warnings   Messages        `json:"warnings"`
	Info       json.RawMessage `json:"info"`
}

// Messages accepts both the array form and the object form ({"code": "text"})
// the API uses for errors and warnings.
type Messages []string

func (m *Messages) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}
	switch b[0] {
	case '[':
		var raw []any
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			out = append(out, stringify(v))
		}
		*m = out
	case '{':
		var raw map[string]any
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(raw))
		for _, k := range keys {
			out = append(out, stringify(raw[k]))
		}
		*m = out
	default:
		var s any
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = []string{stringify(s)}
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Consecutive transport failures before the breaker opens; 0 disables the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client talks to the single RPC endpoint. One attempt per call, no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    m,
	}

	if cfg.BreakerFailures > 0 {
		cooldown := cfg.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "novaposhta",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
				m.SetBreakerState(int(to))
			},
		})
	}
	return c
}

// Call performs one request. A success:false answer returns the envelope
// together with a *RemoteError; transport problems return a *TransportError.
func (c *Client) Call(ctx context.Context, apiKey, model, method string, props any) (*Envelope, error) {
	if props == nil {
		props = struct{}{}
	}
	start := time.Now()
	env, err := c.execute(ctx, Request{
		APIKey:           apiKey,
		ModelName:        model,
		CalledMethod:     method,
		MethodProperties: props,
	})

	outcome := "success"
	switch {
	case err != nil:
		outcome = "transport_error"
	case !env.Success:
		outcome = "rejected"
	}
	c.metrics.ObserveRemoteCall(model, method, outcome, time.Since(start))

	if err != nil {
		c.logger.Warn("nova poshta call failed",
			zap.String("model", model),
			zap.String("method", method),
			zap.Error(err))
		return nil, err
	}
	if !env.Success {
		remoteErr := &RemoteError{
			Model:      model,
			Method:     method,
			Errors:     env.Errors,
			ErrorCodes: env.ErrorCodes,
			Warnings:   env.Warnings,
		}
		c.logger.Info("nova poshta rejected request",
			zap.String("model", model),
			zap.String("method", method),
			zap.String("reason", remoteErr.Message()))
		return env, remoteErr
	}

	c.logger.Debug("nova poshta call",
		zap.String("model", model),
		zap.String("method", method),
		zap.Duration("took", time.Since(start)))
	return env, nil
}

func (c *Client) execute(ctx context.Context, req Request) (*Envelope, error) {
	if c.breaker == nil {
		return c.roundTrip(ctx, req)
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{Model: req.ModelName, Method: req.CalledMethod, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return res.(*Envelope), nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (*Envelope, error) {
	fail := func(status int, err error) (*Envelope, error) {
		return nil, &TransportError{Model: req.ModelName, Method: req.CalledMethod, StatusCode: status, Err: err}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fail(0, fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fail(0, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return &env, nil
}

// decodeData unmarshals the envelope's data array into T items.
func decodeData[T any](env *Envelope, model, method string) ([]T, error) {
	out := []T{}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &TransportError{Model: model, Method: method, Err: fmt.Errorf("decode data: %w", err)}
	}
	return out, nil
}
