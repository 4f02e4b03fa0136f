package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpleboard/internal/model"
)

var sampleMove = model.MoveRequest{SourceBucketID: "todo", SourceIndex: 0, DestinationBucketID: "done", DestinationIndex: 1}

func TestHTTPConfirmerResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{name: "empty 204", status: http.StatusNoContent, want: true},
		{name: "confirmed true", status: http.StatusOK, body: `{"confirmed":true}`, want: true},
		{name: "confirmed false", status: http.StatusOK, body: `{"confirmed":false}`, want: false},
		{name: "unrelated body", status: http.StatusOK, body: `[{"id":1}]`, want: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
		{name: "not found", status: http.StatusNotFound, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				var got model.MoveRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, sampleMove, got)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewHTTPConfirmer(srv.URL, srv.Client(), DefaultBreakerCfg(), nil)
			ok, err := c.ConfirmMove(context.Background(), sampleMove)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUnexpectedStatus)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestHTTPConfirmerBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := DefaultBreakerCfg()
	cfg.MinRequests = 3
	cfg.Timeout = time.Minute
	c := NewHTTPConfirmer(srv.URL, srv.Client(), cfg, nil)

	for i := 0; i < 3; i++ {
		_, err := c.ConfirmMove(context.Background(), sampleMove)
		require.ErrorIs(t, err, ErrUnexpectedStatus)
	}

	_, err := c.ConfirmMove(context.Background(), sampleMove)
	require.True(t, errors.Is(err, gobreaker.ErrOpenState), "expected open breaker, got %v", err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPConfirmerDeclineDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"confirmed":false}`))
	}))
	defer srv.Close()

	cfg := DefaultBreakerCfg()
	cfg.MinRequests = 1
	c := NewHTTPConfirmer(srv.URL, srv.Client(), cfg, nil)

	for i := 0; i < 5; i++ {
		ok, err := c.ConfirmMove(context.Background(), sampleMove)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestHTTPConfirmerHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewHTTPConfirmer(srv.URL, srv.Client(), DefaultBreakerCfg(), nil)
	ok, err := c.ConfirmMove(ctx, sampleMove)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
}

func TestRandomConfirmer(t *testing.T) {
	always := NewRandomConfirmer(1, 0, 7)
	never := NewRandomConfirmer(0, 0, 7)
	for i := 0; i < 20; i++ {
		ok, err := always.ConfirmMove(context.Background(), sampleMove)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = never.ConfirmMove(context.Background(), sampleMove)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	slow := NewRandomConfirmer(1, time.Minute, 7)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := slow.ConfirmMove(ctx, sampleMove)
	require.ErrorIs(t, err, context.Canceled)
}
