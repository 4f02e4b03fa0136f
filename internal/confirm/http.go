// Package confirm provides Confirmer implementations for board moves.
package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"simpleboard/internal/model"
)

// ErrUnexpectedStatus is returned for non-2xx confirmation responses.
var ErrUnexpectedStatus = errors.New("unexpected confirmation response status")

const maxResponseBytes = 64 * 1024

type BreakerCfg struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerCfg trips after half of at least five calls have failed.
func DefaultBreakerCfg() BreakerCfg {
	return BreakerCfg{
		Name:             "move-confirmer",
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      5,
	}
}

// HTTPConfirmer asks a remote endpoint to confirm a move. The request body is
// the JSON MoveRequest. Any 2xx response confirms the move unless its body
// is a JSON object with "confirmed": false. Transport errors and other
// statuses count as failures and feed the circuit breaker; a decline does
// not.
type HTTPConfirmer struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

type confirmResponse struct {
	Confirmed *bool `json:"confirmed"`
}

func NewHTTPConfirmer(url string, client *http.Client, cfg BreakerCfg, logger *zap.Logger) *HTTPConfirmer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &HTTPConfirmer{url: url, client: client, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("confirmer circuit breaker changed state",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	return c
}

func (c *HTTPConfirmer) ConfirmMove(ctx context.Context, req model.MoveRequest) (bool, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Debug("confirmation short-circuited", zap.Error(err))
		}
		return false, err
	}
	return res.(bool), nil
}

func (c *HTTPConfirmer) post(ctx context.Context, req model.MoveRequest) (bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("encode move request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build confirmation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("confirmation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("read confirmation response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return true, nil
	}
	var out confirmResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.Confirmed == nil {
		// a non-JSON or unrelated 2xx body still counts as OK
		return true, nil
	}
	return *out.Confirmed, nil
}
