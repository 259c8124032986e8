package iam

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

// Handlers handles HTTP requests for authentication and registration
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterPublicRoutes registers routes served without a session
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.Login).Methods("POST")
}

// RegisterRoutes registers routes served behind the session middleware
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients", h.RegisterPatient).Methods("POST")
	router.HandleFunc("/patients", h.ListPatients).Methods("GET")
}

// Login handles role-aware login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var credentials types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	if credentials.LoginID == "" || credentials.Password == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Login ID and password are required")
		return
	}

	token, err := h.service.Login(r.Context(), &credentials)
	if err != nil {
		var pe *types.PortalError
		if errors.As(err, &pe) && pe.Code == types.ErrCodeInvalidCredentials {
			h.writeError(w, http.StatusUnauthorized, pe.Code, pe.Message)
			return
		}
		h.logger.WithError(err).Error("Login failed")
		h.writeError(w, http.StatusInternalServerError, types.ErrCodeInternalError, "Login failed")
		return
	}

	h.writeJSON(w, http.StatusOK, token)
}

// RegisterPatient handles doctor-side patient registration
func (h *Handlers) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "No session")
		return
	}

	if session.Role != types.RoleDoctor {
		h.writeError(w, http.StatusForbidden, types.ErrCodeForbidden, "Only doctors can register patients")
		return
	}

	var req types.PatientRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	result, err := h.service.RegisterPatient(r.Context(), &req)
	if err != nil {
		var pe *types.PortalError
		if errors.As(err, &pe) && pe.Type == types.ErrorTypeValidation {
			h.writeError(w, http.StatusBadRequest, pe.Code, pe.Message)
			return
		}
		h.logger.WithError(err).Error("Patient registration failed")
		h.writeError(w, http.StatusInternalServerError, "registration_failed", "Patient registration failed")
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// ListPatients returns the doctor-menu patient listing
func (h *Handlers) ListPatients(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "No session")
		return
	}

	if session.Role != types.RoleDoctor {
		h.writeError(w, http.StatusForbidden, types.ErrCodeForbidden, "Only doctors can list patients")
		return
	}

	patients, err := h.service.ListPatients(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list patients")
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list patients")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
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
