package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/export"
	"github.com/ppiankov/intralign/internal/model"
)

// bind decodes the request body into T and validates it
func bind[T any](c echo.Context, op string) (T, error) {
	var v T
	if err := c.Bind(&v); err != nil {
		return v, model.E(model.KindValidation, op, "malformed request body: %v", bindMessage(err))
	}
	if err := model.Validate(op, v); err != nil {
		return v, err
	}
	return v, nil
}

func bindMessage(err error) interface{} {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Message
	}
	return err
}

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	model.AnalysisRequest
	SessionID string `json:"session_id,omitempty"`
	Seed      bool   `json:"seed,omitempty"`
}

// AnalyzeResponse is the analysis plus the annotations it seeded
type AnalyzeResponse struct {
	*model.AnalysisResponse
	Annotations []model.Annotation `json:"annotations,omitempty"`
}

func (s *Server) analyze(c echo.Context) error {
	const op = "api.analyze"
	req, err := bind[AnalyzeRequest](c, op)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if !req.Seed {
		resp, err := s.analyzer.Analyze(ctx, req.AnalysisRequest)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, AnalyzeResponse{AnalysisResponse: resp})
	}

	if req.SessionID == "" {
		return model.E(model.KindValidation, op, "session_id is required when seed is set")
	}
	resp, seeded, err := s.analyzer.AnalyzeAndSeed(ctx, req.AnalysisRequest, req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AnalyzeResponse{AnalysisResponse: resp, Annotations: seeded})
}

// CreateAnnotationRequest is the body of POST /sessions/:session/annotations
type CreateAnnotationRequest struct {
	StrategyCode  string     `json:"strategy_code" validate:"required"`
	Origin        string     `json:"origin" validate:"omitempty,oneof=machine human"`
	SourceOffsets model.Span `json:"source_offsets"`
	TargetOffsets model.Span `json:"target_offsets"`
	Confidence    float64    `json:"confidence"`
	Comment       string     `json:"comment"`
	Explanation   string     `json:"explanation"`
}

func (s *Server) createAnnotation(c echo.Context) error {
	const op = "api.createAnnotation"
	req, err := bind[CreateAnnotationRequest](c, op)
	if err != nil {
		return err
	}
	code, err := model.ParseStrategyCode(req.StrategyCode)
	if err != nil {
		return model.Wrap(err, model.KindValidation, op)
	}
	origin := model.OriginHuman
	if req.Origin != "" {
		origin = model.Origin(req.Origin)
	}

	a, err := s.store.Create(c.Request().Context(), annotation.CreateParams{
		SessionID:     c.Param("session"),
		StrategyCode:  code,
		Origin:        origin,
		SourceOffsets: req.SourceOffsets,
		TargetOffsets: req.TargetOffsets,
		Confidence:    req.Confidence,
		Comment:       req.Comment,
		Explanation:   req.Explanation,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (s *Server) listAnnotations(c echo.Context) error {
	const op = "api.listAnnotations"
	var f annotation.Filter

	statuses, err := parseStatuses(op, c.QueryParams()["status"])
	if err != nil {
		return err
	}
	f.Statuses = statuses

	for _, raw := range c.QueryParams()["code"] {
		code, err := model.ParseStrategyCode(raw)
		if err != nil {
			return model.Wrap(err, model.KindValidation, op)
		}
		f.Codes = append(f.Codes, code)
	}

	if raw := c.QueryParam("include_hidden"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return model.E(model.KindValidation, op, "include_hidden must be a boolean")
		}
		f.IncludeHidden = v
	}

	list, err := s.store.List(c.Request().Context(), c.Param("session"), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getAnnotation(c echo.Context) error {
	a, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// TransitionRequest is the body of POST /annotations/:id/transition
type TransitionRequest struct {
	Action  string `json:"action" validate:"required,oneof=accept reject modify"`
	NewCode string `json:"new_code"`
	Comment string `json:"comment"`
}

func (s *Server) transition(c echo.Context) error {
	const op = "api.transition"
	req, err := bind[TransitionRequest](c, op)
	if err != nil {
		return err
	}

	params := annotation.TransitionParams{Comment: req.Comment}
	if req.NewCode != "" {
		code, err := model.ParseStrategyCode(req.NewCode)
		if err != nil {
			return model.Wrap(err, model.KindValidation, op)
		}
		params.NewCode = code
	}

	a, err := s.store.Transition(c.Request().Context(), c.Param("id"), model.Action(req.Action), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) audit(c echo.Context) error {
	const op = "api.audit"
	f := annotation.AuditFilter{AnnotationID: c.QueryParam("annotation_id")}
	if raw := c.QueryParam("action"); raw != "" {
		action, err := model.ParseAction(raw)
		if err != nil {
			return model.Wrap(err, model.KindValidation, op)
		}
		f.Action = action
	}

	events, err := s.store.Audit(c.Request().Context(), c.Param("session"), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) export(c echo.Context) error {
	const op = "api.export"
	statuses, err := parseStatuses(op, c.QueryParams()["status"])
	if err != nil {
		return err
	}
	req := export.Request{
		Session:  c.Param("session"),
		Type:     c.QueryParam("type"),
		Format:   c.QueryParam("format"),
		Scope:    c.QueryParam("scope"),
		Statuses: statuses,
	}

	// Buffered so a failure still gets a JSON error instead of a truncated stream
	var buf bytes.Buffer
	n, err := s.exporter.Export(c.Request().Context(), &buf, req)
	if err != nil {
		return err
	}

	contentType := "application/x-ndjson"
	if req.Format == export.FormatTable {
		contentType = "text/csv; charset=utf-8"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName(req)+`"`)
	c.Response().Header().Set("X-Record-Count", strconv.Itoa(n))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) listSessions(c echo.Context) error {
	sessions, err := s.store.Sessions(c.Request().Context())
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []string{}
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) diagnostics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Diagnostics())
}

// HealthStatus is the body of GET /healthz
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Storage string `json:"storage"`
	Message string `json:"message,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	h := HealthStatus{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
		Storage: s.store.Diagnostics().Active,
	}
	code := http.StatusOK
	if err := s.store.Ping(c.Request().Context()); err != nil {
		h.Status = "unavailable"
		h.Message = err.Error()
		code = http.StatusServiceUnavailable
	} else if s.store.Diagnostics().Degraded {
		h.Status = "degraded"
	}
	return c.JSON(code, h)
}

func parseStatuses(op string, raw []string) ([]model.Status, error) {
	var out []model.Status
	for _, r := range raw {
		st, err := model.ParseStatus(r)
		if err != nil {
			return nil, model.Wrap(err, model.KindValidation, op)
		}
		out = append(out, st)
	}
	return out, nil
}
