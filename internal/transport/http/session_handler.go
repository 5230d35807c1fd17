package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/gidavehub/mlstudio-sub000/internal/errors"
	"github.com/gidavehub/mlstudio-sub000/internal/pipeline"
	"github.com/gidavehub/mlstudio-sub000/internal/services"
)

// SessionHandler serves the session and pipeline routes.
type SessionHandler struct {
	sessions *services.SessionService
	service  *services.PreprocessService
	logger   *slog.Logger
	validate *validator.Validate
	maxBody  int64
}

// NewSessionHandler creates the handler.
func NewSessionHandler(sessions *services.SessionService, service *services.PreprocessService, logger *slog.Logger, maxBody int64) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		sessions: sessions,
		service:  service,
		logger:   logger.With(slog.String("component", "session_handler")),
		validate: validator.New(),
		maxBody:  maxBody,
	}
}

// Routes mounts the session routes.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.CreateSession)
	r.Get("/", h.ListSessions)

	r.Route("/{sessionID}", func(r chi.Router) {
		r.Delete("/", h.DeleteSession)
		r.Get("/", h.GetSession)

		r.Post("/data", h.LoadData)
		r.Post("/missing", h.HandleMissing)
		r.Post("/normalize", h.Normalize)
		r.Post("/encode", h.Encode)
		r.Post("/outliers", h.ClipOutliers)
		r.Post("/split", h.SplitData)
		r.Post("/tensors", h.ConvertToTensors)
		r.Post("/replay", h.Replay)
		r.Post("/reset", h.Reset)

		r.Get("/steps", h.GetSteps)
		r.Get("/stats", h.GetStats)
		r.Get("/histogram", h.GetHistogram)
		r.Get("/scatter", h.GetScatter)
		r.Get("/correlation", h.GetCorrelation)
		r.Get("/export", h.Export)
	})
	return r
}

// loadRequest carries a dataset payload. XLSX payloads are base64 encoded;
// CSV and JSON are passed as text.
type loadRequest struct {
	Format string `json:"format" validate:"required,oneof=csv json xlsx"`
	Data   string `json:"data" validate:"required"`
}

type missingRequest struct {
	Strategy      string   `json:"strategy" validate:"required,oneof=drop_rows drop_columns mean median mode forward_fill backward_fill"`
	TargetColumns []string `json:"target_columns"`
}

type normalizeRequest struct {
	Method        string   `json:"method" validate:"required,oneof=minmax zscore robust"`
	TargetColumns []string `json:"target_columns"`
}

type encodeRequest struct {
	Method        string   `json:"method" validate:"required,oneof=onehot label target"`
	TargetColumns []string `json:"target_columns"`
	TargetColumn  string   `json:"target_column" validate:"required_if=Method target"`
}

type outliersRequest struct {
	Method          string   `json:"method" validate:"required,oneof=iqr zscore percentile"`
	Threshold       float64  `json:"threshold" validate:"gte=0"`
	LowerPercentile float64  `json:"lower_percentile" validate:"gte=0,lte=100"`
	UpperPercentile float64  `json:"upper_percentile" validate:"gte=0,lte=100"`
	TargetColumns   []string `json:"target_columns"`
}

type splitRequest struct {
	Train      float64 `json:"train" validate:"required,gt=0,lte=1"`
	Validation float64 `json:"validation" validate:"gte=0,lte=1"`
	Test       float64 `json:"test" validate:"gte=0,lte=1"`
	Seed       int64   `json:"seed"`
}

type replayRequest struct {
	Steps []pipeline.Step `json:"steps" validate:"required,min=1"`
}

// CreateSession handles POST /sessions. An optional body loads an initial
// dataset into the new session.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	// Inline dataset payloads are optional on creation: an absent body is
	// fine, a malformed one is rejected before any session is made.
	var req loadRequest
	if decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		h.renderError(w, r, apierrors.InvalidRequestWithError(decodeErr))
		return
	}

	session, err := h.sessions.Create(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if req.Data != "" {
		if err := h.validate.Struct(req); err != nil {
			h.renderError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		payload, err := decodePayload(req)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		if err := h.service.Load(r.Context(), session.ID, services.DataFormat(req.Format), payload); err != nil {
			h.renderError(w, r, err)
			return
		}
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, session.Info())
}

// ListSessions handles GET /sessions.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.sessions.List())
}

// GetSession handles GET /sessions/{sessionID}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, session.Info())
}

// DeleteSession handles DELETE /sessions/{sessionID}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// LoadData handles POST /sessions/{sessionID}/data.
func (h *SessionHandler) LoadData(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !h.decode(w, r, &req) {
		return
	}
	payload, err := decodePayload(req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.service.Load(r.Context(), sessionID, services.DataFormat(req.Format), payload); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respondInfo(w, r, sessionID)
}

// HandleMissing handles POST /sessions/{sessionID}/missing.
func (h *SessionHandler) HandleMissing(w http.ResponseWriter, r *http.Request) {
	var req missingRequest
	if !h.decode(w, r, &req) {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	err := h.service.HandleMissing(r.Context(), sessionID, pipeline.MissingStrategy(req.Strategy), req.TargetColumns)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respondInfo(w, r, sessionID)
}

// Normalize handles POST /sessions/{sessionID}/normalize.
func (h *SessionHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	err := h.service.Normalize(r.Context(), sessionID, pipeline.ScaleMethod(req.Method), req.TargetColumns)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respondInfo(w, r, sessionID)
}

// Encode handles POST /sessions/{sessionID}/encode.
func (h *SessionHandler) Encode(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	err := h.service.Encode(r.Context(), sessionID, pipeline.EncodeMethod(req.Method), pipeline.EncodeOptions{
		TargetColumns: req.TargetColumns,
		TargetColumn:  req.TargetColumn,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respondInfo(w, r, sessionID)
}

// ClipOutliers handles POST /sessions/{sessionID}/outliers.
func (h *SessionHandler) ClipOutliers(w http.ResponseWriter, r *http.Request) {
	var req outliersRequest
	if !h.decode(w, r, &req) {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	err := h.service.ClipOutliers(r.Context(), sessionID, pipeline.ClipConfig{
		Method:          pipeline.ClipMethod(req.Method),
		Threshold:       req.Threshold,
		LowerPercentile: req.LowerPercentile,
		UpperPercentile: req.UpperPercentile,
		TargetColumns:   req.TargetColumns,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respondInfo(w, r, sessionID)
}

// SplitData handles POST /sessions/{sessionID}/split.
func (h *SessionHandler) SplitData(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.SplitData(r.Context(), chi.URLParam(r, "sessionID"), pipeline.SplitOptions{
		Ratios: pipeline.SplitRatios{Train: req.Train, Validation: req.Validation, Test: req.Test},
		Seed:   req.Seed,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"training":   len(result.Training),
		"validation": len(result.Validation),
		"testing":    len(result.Testing),
		"seed":       result.Seed,
	})
}

// ConvertToTensors handles POST /sessions/{sessionID}/tensors.
func (h *SessionHandler) ConvertToTensors(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.ConvertToTensors(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, bundle)
}

// Replay handles POST /sessions/{sessionID}/replay.
func (h *SessionHandler) Replay(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if !h.decode(w, r, &req) {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.service.Replay(r.Context(), sessionID, req.Steps); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.respondInfo(w, r, sessionID)
}

// Reset handles POST /sessions/{sessionID}/reset.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// GetSteps handles GET /sessions/{sessionID}/steps.
func (h *SessionHandler) GetSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.service.Steps(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, steps)
}

// GetStats handles GET /sessions/{sessionID}/stats.
func (h *SessionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Summarize(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

// GetHistogram handles GET /sessions/{sessionID}/histogram?column=&bins=.
func (h *SessionHandler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	if column == "" {
		h.renderError(w, r, apierrors.ErrValidation("column", "column query parameter is required"))
		return
	}
	bins := 0
	if raw := r.URL.Query().Get("bins"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.renderError(w, r, apierrors.ErrValidation("bins", "bins must be a positive integer"))
			return
		}
		bins = parsed
	}
	hist, err := h.service.Histogram(chi.URLParam(r, "sessionID"), column, bins)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, hist)
}

// GetScatter handles GET /sessions/{sessionID}/scatter?x=&y=.
func (h *SessionHandler) GetScatter(w http.ResponseWriter, r *http.Request) {
	x, y := r.URL.Query().Get("x"), r.URL.Query().Get("y")
	if x == "" || y == "" {
		h.renderError(w, r, apierrors.ErrValidation("x,y", "x and y query parameters are required"))
		return
	}
	series, err := h.service.Scatter(chi.URLParam(r, "sessionID"), x, y)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, series)
}

// GetCorrelation handles GET /sessions/{sessionID}/correlation?columns=a,b.
func (h *SessionHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	var columns []string
	if raw := r.URL.Query().Get("columns"); raw != "" {
		columns = strings.Split(raw, ",")
	}
	matrix, err := h.service.Correlation(chi.URLParam(r, "sessionID"), columns)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, matrix)
}

// Export handles GET /sessions/{sessionID}/export?format=csv|json.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := services.DataFormat(r.URL.Query().Get("format"))
	switch format {
	case "", services.FormatCSV:
		format = services.FormatCSV
	case services.FormatJSON:
	default:
		h.renderError(w, r, apierrors.ErrValidation("format", "format must be csv or json"))
		return
	}

	data, err := h.service.Export(chi.URLParam(r, "sessionID"), format)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if format == services.FormatCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// decode reads, parses, and validates a JSON request body, rendering the
// appropriate error itself. It returns false when the request was rejected.
func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	return true
}

// respondInfo renders the session's current shape, the standard response to
// a successful transform.
func (h *SessionHandler) respondInfo(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, session.Info())
}

func (h *SessionHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, services.ErrSessionNotFound):
		apiErr = apierrors.ErrSessionNotFound
	case errors.Is(err, services.ErrTooManySessions):
		apiErr = apierrors.NewWithDetails(http.StatusServiceUnavailable, "SESSION_LIMIT", "Session limit reached", err.Error())
	default:
		apiErr = apierrors.FromDomain(err)
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}

// decodePayload unpacks a loadRequest body: base64 for workbooks, raw text
// otherwise.
func decodePayload(req loadRequest) ([]byte, error) {
	if req.Format == string(services.FormatExcel) {
		payload, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return nil, apierrors.NewWithDetails(http.StatusBadRequest, "MALFORMED_INPUT",
				"XLSX payload must be base64 encoded", err.Error())
		}
		return payload, nil
	}
	return []byte(req.Data), nil
}
