package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/model"
	"github.com/chequetally/backend/src/security/validation"
	"github.com/chequetally/backend/src/utils"
)

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         *model.User `json:"user,omitempty"`
}

func (h *UserHandler) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := model.GetUserByID(h.db, userID)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		logger.FromContext(ctx).Error("User lookup failed", "error", err)
	}
	return user, err
}

// issueTokens creates an access/refresh pair and the auth session that binds them.
func (h *UserHandler) issueTokens(r *http.Request, userID string) (*tokenResponse, error) {
	accessToken, err := h.authService.GenerateToken(userID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	session := &model.Session{
		UserID:       userID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(h.refreshExpiry),
	}
	if err := model.CreateSession(h.db, session); err != nil {
		return nil, err
	}
	return &tokenResponse{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: "bearer"}, nil
}

func (h *UserHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var credentials struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(r, &credentials); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Username = validation.SanitizeText(credentials.Username)
	credentials.Email = strings.ToLower(validation.SanitizeText(credentials.Email))

	if credentials.Username == "" && strings.Contains(credentials.Email, "@") {
		credentials.Username = strings.Split(credentials.Email, "@")[0]
	}
	if err := validation.ValidateStringNotEmpty(credentials.Username, "username"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(credentials.Username, validation.MaxUsernameLength, "username"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateEmail(credentials.Email); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(credentials.Password); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err := model.GetUserByEmail(h.db, credentials.Email)
	if err == nil {
		log.Warn("Signup rejected: email already registered")
		sendJSONError(w, "Email already registered", http.StatusBadRequest)
		return
	} else if !errors.Is(err, model.ErrUserNotFound) {
		log.Error("Error checking email uniqueness", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	hashedPassword, err := h.authService.HashPassword(credentials.Password)
	if err != nil {
		log.Error("Failed to hash password", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username: credentials.Username,
		Email:    credentials.Email,
		Password: hashedPassword,
	}
	if err := user.CreateUser(h.db); err != nil {
		log.Error("Failed to create user in DB", "error", err)
		sendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	log.Info("User registered", "userID", user.ID)
	utils.SendJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(r, &credentials); err != nil {
		log.Warn("Invalid request body for login", "error", err)
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByEmail(h.db, credentials.Email)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			log.Error("User lookup by email failed for login", "error", err)
		}
		sendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if err := user.CheckPassword(credentials.Password); err != nil {
		log.Warn("Password check failed for login", "userID", user.ID)
		sendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	tokens, err := h.issueTokens(r, user.ID)
	if err != nil {
		log.Error("Failed to issue tokens", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	if err := user.RecordLogin(h.db); err != nil {
		log.Error("Failed to record login", "userID", user.ID, "error", err)
	}

	log.Info("User login successful, tokens generated", "userID", user.ID)
	tokens.User = user
	utils.SendJSON(w, http.StatusOK, tokens)
}

// RefreshTokenHandler rotates the refresh token: the old auth session is removed and a new pair issued.
func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var requestBody struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSONBody(r, &requestBody); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if requestBody.RefreshToken == "" {
		sendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	oldSession, err := model.GetSessionByRefreshToken(h.db, requestBody.RefreshToken)
	if err != nil {
		log.Warn("Refresh token lookup failed or token invalid/expired", "error", err)
		sendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}
	if err := model.DeleteSessionByRefreshToken(h.db, requestBody.RefreshToken); err != nil {
		log.Error("Failed to delete old session during refresh", "refreshTokenPrefix", tokenPrefix(requestBody.RefreshToken), "error", err)
		sendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}

	tokens, err := h.issueTokens(r, oldSession.UserID)
	if err != nil {
		log.Error("Failed to issue tokens on refresh", "userID", oldSession.UserID, "error", err)
		sendJSONError(w, "Failed to create new session on refresh", http.StatusInternalServerError)
		return
	}

	log.Info("Token refreshed successfully", "userID", oldSession.UserID)
	utils.SendJSON(w, http.StatusOK, tokens)
}

func (h *UserHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	tokenString := bearerToken(r)
	if err := model.DeleteSessionByToken(h.db, tokenString); err != nil {
		log.Warn("Failed to delete session on logout", "tokenPrefix", tokenPrefix(tokenString), "error", err)
		sendJSONError(w, "Failed to log out", http.StatusInternalServerError)
		return
	}
	log.Info("Session invalidated on logout")
	w.WriteHeader(http.StatusNoContent)
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// ChangePasswordHandler updates the password and signs the user out of every session.
func (h *UserHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSONBody(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.NewPassword != req.ConfirmNewPassword {
		sendJSONError(w, "New passwords do not match", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.loadUser(r.Context(), userID)
	if err != nil {
		sendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		log.Warn("Current password mismatch on change-password")
		sendJSONError(w, "Incorrect current password", http.StatusForbidden)
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		log.Error("Failed to hash new password", "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := user.UpdatePassword(h.db, hashed); err != nil {
		log.Error("Failed to update password", "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := model.DeleteSessionsForUser(h.db, userID); err != nil {
		log.Error("Failed to revoke sessions after password change", "error", err)
	}

	log.Info("Password changed; all sessions revoked")
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Password changed. Please log in again."})
}
