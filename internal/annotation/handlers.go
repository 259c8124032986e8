package annotation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medicloud/portal/internal/iam"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

// Handlers handles HTTP requests for annotations and history
type Handlers struct {
	service        *Service
	maxUploadBytes int64
	logger         *logger.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(service *Service, maxUploadBytes int64, log *logger.Logger) *Handlers {
	return &Handlers{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients/{loginID}/annotations", h.Annotate).Methods("POST")
	router.HandleFunc("/patients/{loginID}/history", h.GetHistory).Methods("GET")
}

// Annotate handles one doctor submission: notes and/or an uploaded report
// as multipart form data, with an optional structured=true field requesting
// the ALERTS/SUMMARY dual-section output.
func (h *Handlers) Annotate(w http.ResponseWriter, r *http.Request) {
	session, ok := iam.SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "No session")
		return
	}

	if session.Role != types.RoleDoctor {
		h.writeError(w, http.StatusForbidden, types.ErrCodeForbidden, "Only doctors can annotate records")
		return
	}

	vars := mux.Vars(r)
	loginID := vars["loginID"]

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart payload")
		return
	}

	req := &types.AnnotationRequest{
		PatientLoginID: loginID,
		Notes:          r.FormValue("notes"),
		Structured:     r.FormValue("structured") == "true",
	}

	if file, header, err := r.FormFile("report"); err == nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read uploaded report")
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}

		req.Attachment = &types.Attachment{
			Data:     data,
			MIMEType: mimeType,
			Filename: header.Filename,
		}
	}

	result, err := h.service.Annotate(r.Context(), req)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"login_id":   loginID,
			"subject_id": session.SubjectID,
		}).WithError(err).Warn("Annotation request failed")
		h.writePortalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// GetHistory returns a patient's history. Doctors can read any patient;
// patients only their own. Stored order is chronological; order=desc asks
// for the reverse-chronological display order.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := iam.SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "No session")
		return
	}

	vars := mux.Vars(r)
	loginID := vars["loginID"]

	if session.Role == types.RolePatient && session.LoginID != loginID {
		h.writeError(w, http.StatusForbidden, types.ErrCodeForbidden, "Patients can only read their own history")
		return
	}

	history, err := h.service.History(r.Context(), loginID)
	if err != nil {
		h.writePortalError(w, err)
		return
	}

	if r.URL.Query().Get("order") == "desc" {
		reversed := make([]types.HistoryEntry, len(history))
		for i, entry := range history {
			reversed[len(history)-1-i] = entry
		}
		history = reversed
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"login_id": loginID,
		"history":  history,
		"count":    len(history),
	})
}

// writePortalError maps typed pipeline errors onto HTTP statuses
func (h *Handlers) writePortalError(w http.ResponseWriter, err error) {
	var pe *types.PortalError
	if !errors.As(err, &pe) {
		h.writeError(w, http.StatusInternalServerError, types.ErrCodeInternalError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch pe.Code {
	case types.ErrCodeEmptyInput:
		status = http.StatusBadRequest
	case types.ErrCodePatientNotFound:
		status = http.StatusNotFound
	case types.ErrCodeModelUnavailable, types.ErrCodeGenerationFailed, types.ErrCodeMalformedModelOutput:
		status = http.StatusBadGateway
	case types.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	h.writeError(w, status, pe.Code, pe.Message)
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	errorResponse := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, status, errorResponse)
}
