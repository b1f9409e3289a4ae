package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NERVsystems/arogyajal/pkg/advisor"
	"github.com/NERVsystems/arogyajal/pkg/core"
	"github.com/NERVsystems/arogyajal/pkg/hydration"
	"github.com/NERVsystems/arogyajal/pkg/monitoring"
	"github.com/NERVsystems/arogyajal/pkg/tools"
)

// RootMessage is returned by GET /.
const RootMessage = "AarogyaJal Gemini API Service"

// REST routes
const (
	RouteRoot      = "/"
	RouteCalculate = "/calculate"
	RouteValidate  = "/validate"
	RouteChat      = "/chat"
	RouteAnalyze   = "/analyze"
)

// maxBodyBytes bounds REST request bodies independently of the transport limit.
const maxBodyBytes = 1 << 20

// errorBody is the REST error payload. Detail is always set; the other
// fields are filled when known.
type errorBody struct {
	Detail string                 `json:"detail"`
	Code   string                 `json:"code,omitempty"`
	Errors []hydration.FieldError `json:"errors,omitempty"`
}

// Handler serves the REST API
type Handler struct {
	logger  *slog.Logger
	advisor tools.Advisor
}

// NewHandler creates a new REST handler. adv may be nil, in which case the
// advisor routes answer 503.
func NewHandler(logger *slog.Logger, adv tools.Advisor) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger.With("component", "rest"),
		advisor: adv,
	}
}

// Routes lists the paths served by the handler
func (h *Handler) Routes() []string {
	return []string{RouteRoot, RouteCalculate, RouteValidate, RouteChat, RouteAnalyze}
}

// ServeHTTP implements the http.Handler interface
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := r.URL.Path
	method := r.Method

	reqID := requestIDFrom(r)

	var status int
	var err error

	switch path {
	case RouteRoot:
		status, err = h.only(http.MethodGet, w, r, h.handleRoot)
	case RouteCalculate:
		status, err = h.only(http.MethodPost, w, r, h.handleCalculate)
	case RouteValidate:
		status, err = h.only(http.MethodPost, w, r, h.handleValidate)
	case RouteChat:
		status, err = h.only(http.MethodPost, w, r, h.handleChat)
	case RouteAnalyze:
		status, err = h.only(http.MethodPost, w, r, h.handleAnalyze)
	default:
		path = "other"
		status, err = h.writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not Found"})
	}

	monitoring.RecordHTTPRequest(path, status)

	duration := time.Since(start)
	if err != nil {
		h.logger.Error("request failed",
			"request_id", reqID,
			"method", method,
			"path", path,
			"status", status,
			"duration", duration,
			"error", err)
		return
	}
	h.logger.Debug("request completed",
		"request_id", reqID,
		"method", method,
		"path", path,
		"status", status,
		"duration", duration)
}

type routeFunc func(w http.ResponseWriter, r *http.Request) (int, error)

func (h *Handler) only(method string, w http.ResponseWriter, r *http.Request, next routeFunc) (int, error) {
	if r.Method != method {
		w.Header().Set("Allow", method)
		return h.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: "Method Not Allowed"})
	}
	return next(w, r)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) (int, error) {
	return h.writeJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) (int, error) {
	var args map[string]any
	if status, err := h.decode(w, r, &args); err != nil {
		return status, err
	}

	result, err := tools.CalculateIntake(r.Context(), core.FormValuesFromArgs(args), h.logger)
	if err != nil {
		var formErrs hydration.FormErrors
		errors.As(err, &formErrs)
		mcpErr := core.FormError(err)
		return h.writeJSON(w, http.StatusBadRequest, errorBody{
			Detail: formErrs.Error(),
			Code:   mcpErr.Code,
			Errors: formErrs,
		})
	}
	return h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) (int, error) {
	var args map[string]any
	if status, err := h.decode(w, r, &args); err != nil {
		return status, err
	}
	return h.writeJSON(w, http.StatusOK, tools.ValidateIntake(core.FormValuesFromArgs(args)))
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) (int, error) {
	var req advisor.ChatRequest
	if status, err := h.decode(w, r, &req); err != nil {
		return status, err
	}
	if h.advisor == nil {
		return h.writeAdvisorError(w, errUnconfigured)
	}

	resp, err := h.advisor.Chat(r.Context(), req.Query)
	if err != nil {
		return h.writeAdvisorError(w, err)
	}
	return h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) (int, error) {
	var req advisor.AnalysisRequest
	if status, err := h.decode(w, r, &req); err != nil {
		return status, err
	}
	if h.advisor == nil {
		return h.writeAdvisorError(w, errUnconfigured)
	}

	resp, err := h.advisor.Analyze(r.Context(), req)
	if err != nil {
		return h.writeAdvisorError(w, err)
	}
	return h.writeJSON(w, http.StatusOK, resp)
}

var errUnconfigured = core.NewError(core.ErrServiceUnavailable, "water quality advisor is not configured")

// decode reads a JSON body. Malformed bodies are answered with 422 before
// the caller sees them.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		status, werr := h.writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Detail: fmt.Sprintf("Invalid request body: %v", err),
			Code:   string(core.ErrParseError),
		})
		if werr != nil {
			return status, werr
		}
		return status, fmt.Errorf("decode body: %w", err)
	}
	return http.StatusOK, nil
}

func (h *Handler) writeAdvisorError(w http.ResponseWriter, err error) (int, error) {
	mcpErr := core.AsMCPError(err)
	status, werr := h.writeJSON(w, mcpErr.HTTPStatus(), errorBody{
		Detail: mcpErr.Message,
		Code:   mcpErr.Code,
	})
	if werr != nil {
		return status, werr
	}
	if status >= http.StatusInternalServerError {
		return status, err
	}
	return status, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return status, fmt.Errorf("write response: %w", err)
	}
	return status, nil
}
