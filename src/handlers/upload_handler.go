package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/security/validation"
	"github.com/chequetally/backend/src/services"
	"github.com/chequetally/backend/src/utils"
	"github.com/go-chi/chi/v5"
)

type UploadHandler struct {
	service       services.ReconciliationService
	maxUploadSize int64
}

func NewUploadHandler(service services.ReconciliationService, maxUploadSize int64) *UploadHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 10 * 1024 * 1024
	}
	return &UploadHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

func (h *UploadHandler) HandleCompanyUpload(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	result, err := h.service.UploadCompanyCheques(r.Context(), *req)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if result.Cheques == nil {
		result.Cheques = []models.StoredCompanyCheque{}
	}
	utils.SendJSON(w, http.StatusOK, result)
}

func (h *UploadHandler) HandleBankUpload(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	result, err := h.service.UploadBankCheques(r.Context(), *req)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if result.Cheques == nil {
		result.Cheques = []models.StoredBankCheque{}
	}
	utils.SendJSON(w, http.StatusOK, result)
}

// readUpload validates the multipart file and turns it into an UploadRequest.
// It writes the error response itself and reports false when the request is unusable.
func (h *UploadHandler) readUpload(w http.ResponseWriter, r *http.Request) (*services.UploadRequest, bool) {
	log := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return nil, false
	}
	sessionID := chi.URLParam(r, "sessionID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1024*1024)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Warn("Upload too large", "limit", h.maxUploadSize)
			sendJSONError(w, fmt.Sprintf("File too large (max %d MB)", h.maxUploadSize/(1024*1024)), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		log.Warn("Failed to parse multipart form", "error", err)
		sendJSONError(w, "Failed to parse upload; send the file in the 'file' field of a multipart form", http.StatusBadRequest)
		return nil, false
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("Failed to retrieve file from request", "error", err)
		sendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadSize {
		log.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", h.maxUploadSize)
		sendJSONError(w, fmt.Sprintf("File too large (max %d MB)", h.maxUploadSize/(1024*1024)), http.StatusRequestEntityTooLarge)
		return nil, false
	}

	text, err := readTextFile(file, fileHeader)
	if err != nil {
		log.Warn("Uploaded file rejected", "filename", fileHeader.Filename, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	log.Info("Processing upload", "sessionID", sessionID, "filename", fileHeader.Filename, "bytes", fileHeader.Size)
	return &services.UploadRequest{
		UserID:    userID,
		SessionID: sessionID,
		Source:    r.FormValue("source"),
		Filename:  validation.SanitizeText(fileHeader.Filename),
		Text:      text,
		Mode:      r.FormValue("mode"),
	}, true
}

func readTextFile(file multipart.File, fileHeader *multipart.FileHeader) (string, error) {
	if err := validation.ValidateFileExtension(fileHeader.Filename); err != nil {
		return "", err
	}
	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		return "", err
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		return "", err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return validation.DecodeText(data)
}
