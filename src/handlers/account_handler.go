package handlers

import (
	"net/http"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/model"
)

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// DeleteAccountHandler removes the user. Auth sessions, reconciliation sessions and
// everything stored under them go with it through cascading deletes.
func (h *UserHandler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req DeleteAccountRequest
	if err := decodeJSONBody(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.loadUser(r.Context(), userID)
	if err != nil {
		sendJSONError(w, "Failed to retrieve user information", http.StatusNotFound)
		return
	}
	if err := user.CheckPassword(req.Password); err != nil {
		log.Warn("Password mismatch for account deletion")
		sendJSONError(w, "Incorrect password. Account deletion failed.", http.StatusForbidden)
		return
	}

	if err := model.DeleteUser(h.db, userID); err != nil {
		log.Error("Failed to delete user", "error", err)
		sendJSONError(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}

	log.Info("Account deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}
