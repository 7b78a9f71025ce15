package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/security"
	"github.com/chequetally/backend/src/utils"
)

type contextKey string

const userIDContextKey contextKey = "userID"

// UserHandler serves signup, login and account routes and guards the rest with AuthMiddleware.
type UserHandler struct {
	db            *sql.DB
	authService   *security.AuthService
	refreshExpiry time.Duration
}

func NewUserHandler(db *sql.DB, authService *security.AuthService, refreshExpiry time.Duration) *UserHandler {
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &UserHandler{
		db:            db,
		authService:   authService,
		refreshExpiry: refreshExpiry,
	}
}

func sendJSONError(w http.ResponseWriter, detail any, statusCode int) {
	utils.SendJSONError(w, detail, statusCode)
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

// bearerToken accepts both "Bearer <token>" and a bare token.
func bearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return authHeader
}

func decodeJSONBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func tokenPrefix(token string) string {
	return token[:min(10, len(token))]
}

func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	user, err := h.loadUser(r.Context(), userID)
	if err != nil {
		sendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	logger.FromContext(r.Context()).Debug("Returning current user")
	utils.SendJSON(w, http.StatusOK, user)
}
