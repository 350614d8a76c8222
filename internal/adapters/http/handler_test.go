package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/farum-insights/internal/adapters/http"
	"github.com/PabloGalante/farum-insights/internal/app/analytics"
	"github.com/PabloGalante/farum-insights/internal/app/events"
	"github.com/PabloGalante/farum-insights/internal/app/experiments"
	"github.com/PabloGalante/farum-insights/internal/config"
	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	queue := events.NewQueue(metrics)

	sessions := analytics.NewService(
		analytics.NewDetector(config.DefaultCrisisConfig()),
		queue,
		analytics.WithMetrics(metrics),
	)
	exps := experiments.NewService(experiments.WithPublisher(queue), experiments.WithMetrics(metrics))

	return httpadapter.NewServer(sessions, exps, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/sessions", map[string]any{
		"user_id": "u1",
		"privacy_consent": map[string]any{
			"analytics_consent":           true,
			"emotional_tracking_consent":  true,
			"crisis_intervention_consent": true,
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]string](t, w)["session_id"]
	require.NotEmpty(t, id)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/journey", map[string]any{
		"stage":           map[string]any{"stage": "validation", "progress": 10},
		"emotional_state": map[string]any{"stress_level": "crisis"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	journey := decode[struct {
		CrisisResponses []domain.CrisisDetectionResult `json:"crisis_responses"`
	}](t, w)
	require.Len(t, journey.CrisisResponses, 1)
	assert.Equal(t, domain.SeverityCrisis, journey.CrisisResponses[0].Severity)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/pain-points", map[string]any{"type": "career", "severity": 6})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/hope", map[string]any{"type": "success-story-engagement", "intensity": 11})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/sessions/"+id+"/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[domain.SessionAnalytics](t, w)
	assert.Equal(t, 1, stats.CrisisIndicators)
	assert.Equal(t, 1, stats.SupportInteractions)

	w = do(t, srv, http.MethodDelete, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outcome := decode[domain.SessionOutcome](t, w)
	assert.Equal(t, domain.SessionNeedsFollowUp, outcome.Type)

	w = do(t, srv, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackingUnknownSessionIsNoContent(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/sessions/nope/support", map[string]any{"type": "peer-support-accessed", "outcome": "helped"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestExperimentEndpoints(t *testing.T) {
	srv := newTestServer(t)

	cfg := map[string]any{
		"name": "stories first",
		"variants": []map[string]any{
			{"id": "control", "weight": 1},
			{"id": "stories", "weight": 1},
		},
		"traffic_allocation": 100,
		"duration_days":      31,
		"wellbeing_metrics": []map[string]any{
			{"name": "hope", "type": "hope-progression", "priority": "primary", "ethical_threshold": 0},
		},
		"target_audience": map[string]any{
			"journey_stages":       []string{"validation"},
			"stress_levels":        []string{"low"},
			"pain_points":          []string{"career"},
			"exclude_crisis_users": true,
		},
	}

	w := do(t, srv, http.MethodPost, "/experiments", cfg)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	cfg["duration_days"] = 14
	w = do(t, srv, http.MethodPost, "/experiments", cfg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	exp := decode[domain.Experiment](t, w)
	assert.Equal(t, domain.StatusDraft, exp.Status)

	w = do(t, srv, http.MethodPost, "/experiments/"+string(exp.ID)+"/start", nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/experiments/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Experiment](t, w), 1)

	// An eligible session.
	w = do(t, srv, http.MethodPost, "/sessions", map[string]any{
		"user_id":         "u1",
		"privacy_consent": map[string]any{"emotional_tracking_consent": true},
	})
	sid := decode[map[string]string](t, w)["session_id"]
	do(t, srv, http.MethodPost, "/sessions/"+sid+"/journey", map[string]any{
		"stage":           map[string]any{"stage": "validation", "progress": 20},
		"emotional_state": map[string]any{"stress_level": "low"},
	})
	do(t, srv, http.MethodPost, "/sessions/"+sid+"/pain-points", map[string]any{"type": "career", "severity": 4})

	w = do(t, srv, http.MethodPost, "/experiments/"+string(exp.ID)+"/assignments", map[string]any{"user_id": "u1", "session_id": sid})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assigned := decode[map[string]any](t, w)
	assert.Equal(t, true, assigned["eligible"])
	variant, _ := assigned["variant_id"].(string)
	require.NotEmpty(t, variant)

	w = do(t, srv, http.MethodPost, "/experiments/"+string(exp.ID)+"/results", map[string]any{"user_id": "u1", "session_id": sid, "variant_id": variant})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/experiments/"+string(exp.ID)+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[domain.TestReport](t, w)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.VariantID(variant), report.Results[0].VariantID)

	w = do(t, srv, http.MethodPost, "/experiments/"+string(exp.ID)+"/stop", map[string]any{"reason": "ethical review"})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, srv, http.MethodPost, "/experiments/"+string(exp.ID)+"/pause", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodGet, "/experiments/missing/results", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/sessions", nil)

	w := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "farum_sessions_live 1")
}
