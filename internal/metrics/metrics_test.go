package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpleboard/internal/model"
)

func TestMoveSettledCountsByState(t *testing.T) {
	c := NewCollector("test")

	c.MoveSettled(model.StateConfirmed, 10*time.Millisecond)
	c.MoveSettled(model.StateConfirmed, 20*time.Millisecond)
	c.MoveSettled(model.StateRolledBack, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.MovesSettled.WithLabelValues("confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.MovesSettled.WithLabelValues("rolled_back")))

	n, err := testutil.GatherAndCount(c.Registry(), "test_moves_settled_total", "test_move_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.MovesSettled.WithLabelValues("idle")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("test")
	live := 3
	c.TrackBoards("test", func() int { return live })
	c.ObserveRequest(http.MethodPost, "/v1/boards/{boardId}/moves", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_boards_live 3")
	assert.Contains(t, string(body), `test_http_requests_total{method="POST",route="/v1/boards/{boardId}/moves",status="200"} 1`)
}
