package handlers

import (
	"net/http"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/services"
	"github.com/chequetally/backend/src/utils"
	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	service services.ReconciliationService
}

func NewSessionHandler(service services.ReconciliationService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	var req struct {
		SessionName string `json:"session_name"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.service.CreateSession(r.Context(), userID, req.SessionName)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	sessions, err := h.service.ListSessions(r.Context(), userID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.SessionSummary{}
	}
	utils.SendJSON(w, http.StatusOK, sessions)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	detail, err := h.service.GetSessionDetail(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if detail.CompanyCheques == nil {
		detail.CompanyCheques = []models.StoredCompanyCheque{}
	}
	if detail.BankCheques == nil {
		detail.BankCheques = []models.StoredBankCheque{}
	}
	if detail.Uploads == nil {
		detail.Uploads = []models.Upload{}
	}
	utils.SendJSON(w, http.StatusOK, detail)
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.service.DeleteSession(r.Context(), userID, sessionID); err != nil {
		sendServiceError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("Session deleted via API", "sessionID", sessionID)
	w.WriteHeader(http.StatusNoContent)
}
