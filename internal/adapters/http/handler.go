package httpadapter

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/PabloGalante/farum-insights/internal/app/analytics"
	"github.com/PabloGalante/farum-insights/internal/app/experiments"
	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

var validate = validator.New()

type Server struct {
	sessions    *analytics.Service
	experiments *experiments.Service
}

// NewServer builds the HTTP API. metrics may be nil, in which case /metrics
// is not mounted.
func NewServer(sessions *analytics.Service, exps *experiments.Service, metrics http.Handler) http.Handler {
	s := &Server{sessions: sessions, experiments: exps}

	r := gin.New()
	r.Use(gin.Recovery(), withRequestID(), withLogging(), withCORS())

	r.GET("/healthz", s.handleHealthz)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	sg := r.Group("/sessions")
	sg.POST("", s.handleStartSession)
	sg.DELETE("/:id", s.handleEndSession)
	sg.POST("/:id/journey", s.handleTrackJourney)
	sg.POST("/:id/hope", s.handleTrackHope)
	sg.POST("/:id/support", s.handleTrackSupport)
	sg.POST("/:id/pain-points", s.handleTrackPainPoint)
	sg.PATCH("/:id/consent", s.handleUpdateConsent)
	sg.GET("/:id/analytics", s.handleSessionAnalytics)

	eg := r.Group("/experiments")
	eg.POST("", s.handleCreateTest)
	eg.GET("/active", s.handleActiveTests)
	eg.GET("/:id", s.handleGetTest)
	eg.POST("/:id/start", s.handleStartTest)
	eg.POST("/:id/pause", s.handlePauseTest)
	eg.POST("/:id/complete", s.handleCompleteTest)
	eg.POST("/:id/stop", s.handleStopTest)
	eg.POST("/:id/assignments", s.handleAssign)
	eg.POST("/:id/results", s.handleRecordResult)
	eg.GET("/:id/results", s.handleTestResults)

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type startSessionRequest struct {
	UserID  string                 `json:"user_id"`
	Consent *domain.PrivacyConsent `json:"privacy_consent,omitempty"`
}

type startSessionResponse struct {
	SessionID domain.SessionID `json:"session_id"`
}

type endSessionRequest struct {
	Outcome *domain.SessionOutcome `json:"outcome,omitempty"`
}

type trackJourneyRequest struct {
	Stage          domain.JourneyStage       `json:"stage"`
	EmotionalState domain.EmotionalState     `json:"emotional_state"`
	Engagement     *domain.ContentEngagement `json:"engagement,omitempty"`
}

type trackJourneyResponse struct {
	CrisisResponses []domain.CrisisDetectionResult `json:"crisis_responses"`
}

type stopTestRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type assignRequest struct {
	UserID    domain.UserID    `json:"user_id" validate:"required"`
	SessionID domain.SessionID `json:"session_id" validate:"required"`
}

type assignResponse struct {
	Eligible  bool             `json:"eligible"`
	VariantID domain.VariantID `json:"variant_id,omitempty"`
}

type recordResultRequest struct {
	VariantID domain.VariantID `json:"variant_id" validate:"required"`
	UserID    domain.UserID    `json:"user_id" validate:"required"`
	SessionID domain.SessionID `json:"session_id" validate:"required"`
}

// ─────────────────────────────────────────────
// Session handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req startSessionRequest
	if !bindOptional(c, &req) {
		return
	}

	id := s.sessions.StartSession(c.Request.Context(), domain.UserID(req.UserID), req.Consent)
	c.JSON(http.StatusCreated, startSessionResponse{SessionID: id})
}

func (s *Server) handleEndSession(c *gin.Context) {
	var req endSessionRequest
	if !bindOptional(c, &req) {
		return
	}

	id := domain.SessionID(c.Param("id"))
	out, err := s.sessions.EndSession(c.Request.Context(), id, req.Outcome)
	if errors.Is(err, domain.ErrSessionNotFound) {
		notFound(c, "session not found")
		return
	}
	// Archive failures are logged by the service; the session is over either way.
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleTrackJourney(c *gin.Context) {
	var req trackJourneyRequest
	if !bindJSON(c, &req) {
		return
	}

	results := s.sessions.TrackJourneyPoint(c.Request.Context(), domain.SessionID(c.Param("id")), req.Stage, req.EmotionalState, req.Engagement)
	if results == nil {
		results = []domain.CrisisDetectionResult{}
	}
	c.JSON(http.StatusOK, trackJourneyResponse{CrisisResponses: results})
}

func (s *Server) handleTrackHope(c *gin.Context) {
	var req domain.HopeIndicator
	if !bindJSON(c, &req) {
		return
	}
	tracked(c, s.sessions.TrackHopeIndicator(c.Request.Context(), domain.SessionID(c.Param("id")), req))
}

func (s *Server) handleTrackSupport(c *gin.Context) {
	var req domain.SupportInteraction
	if !bindJSON(c, &req) {
		return
	}
	tracked(c, s.sessions.TrackSupportInteraction(c.Request.Context(), domain.SessionID(c.Param("id")), req))
}

func (s *Server) handleTrackPainPoint(c *gin.Context) {
	var req domain.PainPoint
	if !bindJSON(c, &req) {
		return
	}
	tracked(c, s.sessions.TrackPainPointExploration(c.Request.Context(), domain.SessionID(c.Param("id")), req))
}

func (s *Server) handleUpdateConsent(c *gin.Context) {
	var req domain.ConsentUpdate
	if !bindJSON(c, &req) {
		return
	}
	tracked(c, s.sessions.UpdatePrivacyConsent(c.Request.Context(), domain.SessionID(c.Param("id")), req))
}

func (s *Server) handleSessionAnalytics(c *gin.Context) {
	out, ok := s.sessions.GetSessionAnalytics(domain.SessionID(c.Param("id")))
	if !ok {
		notFound(c, "session not found")
		return
	}
	c.JSON(http.StatusOK, out)
}

// ─────────────────────────────────────────────
// Experiment handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateTest(c *gin.Context) {
	var req domain.ExperimentConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	exp, err := s.experiments.CreateTest(c.Request.Context(), req)
	if err != nil {
		experimentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exp)
}

func (s *Server) handleActiveTests(c *gin.Context) {
	c.JSON(http.StatusOK, s.experiments.GetActiveTests())
}

func (s *Server) handleGetTest(c *gin.Context) {
	exp, err := s.experiments.GetTest(domain.ExperimentID(c.Param("id")))
	if err != nil {
		experimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (s *Server) handleStartTest(c *gin.Context) {
	statusChange(c, s.experiments.StartTest(c.Request.Context(), domain.ExperimentID(c.Param("id"))))
}

func (s *Server) handlePauseTest(c *gin.Context) {
	statusChange(c, s.experiments.PauseTest(c.Request.Context(), domain.ExperimentID(c.Param("id"))))
}

func (s *Server) handleCompleteTest(c *gin.Context) {
	statusChange(c, s.experiments.CompleteTest(c.Request.Context(), domain.ExperimentID(c.Param("id"))))
}

func (s *Server) handleStopTest(c *gin.Context) {
	var req stopTestRequest
	if !bindJSON(c, &req) {
		return
	}
	statusChange(c, s.experiments.StopTest(c.Request.Context(), domain.ExperimentID(c.Param("id")), req.Reason))
}

func (s *Server) handleAssign(c *gin.Context) {
	var req assignRequest
	if !bindJSON(c, &req) {
		return
	}

	session, ok := s.sessions.Snapshot(req.SessionID)
	if !ok {
		notFound(c, "session not found")
		return
	}

	variant, eligible := s.experiments.AssignUserToVariant(c.Request.Context(), req.UserID, domain.ExperimentID(c.Param("id")), session)
	c.JSON(http.StatusOK, assignResponse{Eligible: eligible, VariantID: variant})
}

func (s *Server) handleRecordResult(c *gin.Context) {
	var req recordResultRequest
	if !bindJSON(c, &req) {
		return
	}

	session, ok := s.sessions.Snapshot(req.SessionID)
	if !ok {
		notFound(c, "session not found")
		return
	}

	result, ok := s.experiments.RecordTestResult(c.Request.Context(), domain.ExperimentID(c.Param("id")), req.VariantID, req.UserID, req.SessionID, session)
	if !ok {
		notFound(c, "experiment not found")
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleTestResults(c *gin.Context) {
	report, err := s.experiments.GetTestResults(domain.ExperimentID(c.Param("id")))
	if err != nil {
		experimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

// bindJSON decodes and validates a required body, answering 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid JSON body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

// bindOptional is bindJSON for endpoints where the body may be omitted.
func bindOptional(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		badRequest(c, "invalid JSON body")
		return false
	}
	return true
}

// tracked answers a tracking call. Calls that had no effect (unknown session
// or missing consent) are not errors.
func tracked(c *gin.Context, applied bool) {
	if applied {
		c.Status(http.StatusAccepted)
		return
	}
	c.Status(http.StatusNoContent)
}

func statusChange(c *gin.Context, err error) {
	if err != nil {
		experimentError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func experimentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrExperimentNotFound):
		notFound(c, err.Error())
	case errors.Is(err, domain.ErrEthicalGuideline):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "ETHICAL_GUIDELINE"})
	case errors.Is(err, domain.ErrInvalidExperiment):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "INVALID_EXPERIMENT"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "INVALID_TRANSITION"})
	default:
		internalError(c, err)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "INVALID_REQUEST"})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, errorResponse{Error: msg, Code: "NOT_FOUND"})
}

func internalError(c *gin.Context, err error) {
	observability.LoggerFromContext(c.Request.Context()).Error("request failed", "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"})
}
