package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/leoforge/go-leodocs/pkg/leodocs"
)

// DocxContentType is the media type of rendered documents.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Rendering failures never expose template internals to clients.
const msgRenderFailed = "report generation failed"

type errorResponse struct {
	Error     string `json:"error"`
	Class     string `json:"class"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, class, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		Class:     class,
		RequestID: RequestID(r.Context()),
	})
}

// renderStatus maps an engine error to an HTTP status.
func renderStatus(err error) int {
	switch leodocs.ErrorClass(err) {
	case "template_not_found":
		return http.StatusNotFound
	case "malformed_template", "missing_asset", "invalid_asset":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithField("request_id", RequestID(r.Context()))

	body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	var req leodocs.Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return
		}
		logger.Debug("Invalid render request: %v", err)
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := s.engine.Render(r.Context(), req)
	if err != nil {
		logger.WithFields(leodocs.Fields{
			"template": req.Template,
			"variant":  req.Variant,
			"class":    leodocs.ErrorClass(err),
		}).Warn("Render rejected: %v", err)
		writeError(w, r, renderStatus(err), leodocs.ErrorClass(err), msgRenderFailed)
		return
	}

	h := w.Header()
	h.Set("Content-Type", DocxContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	h.Set("Content-Length", strconv.Itoa(len(result.Data)))
	h.Set("X-Template", result.Template)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		logger.Debug("Client went away: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
