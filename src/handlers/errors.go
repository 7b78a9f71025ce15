package handlers

import (
	"errors"
	"net/http"

	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/parsers"
	"github.com/chequetally/backend/src/processors"
	"github.com/chequetally/backend/src/services"
)

// rejectionDetail is the 422 body detail for uploads refused as a whole.
type rejectionDetail struct {
	Message  string                        `json:"message"`
	Rejected []*processors.ExtractionError `json:"rejected"`
}

// sendServiceError maps service, engine and extraction errors onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var batchErr *services.BatchRejectedError
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		sendJSONError(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, services.ErrTallyNotFound):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidInput):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, processors.ErrMissingInput):
		sendJSONError(w, "Both company and bank cheques must be uploaded before running the tally", http.StatusBadRequest)
	case errors.As(err, &batchErr):
		sendJSONError(w, rejectionDetail{Message: "Upload rejected: some records failed validation", Rejected: batchErr.Rejected}, http.StatusUnprocessableEntity)
	case errors.Is(err, parsers.ErrExtractionUnavailable):
		log.Error("Extraction service unavailable", "error", err)
		sendJSONError(w, "Extraction service unavailable, try again later", http.StatusBadGateway)
	case errors.Is(err, processors.ErrExtraction), errors.Is(err, processors.ErrInvalidRecord):
		sendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Error("Unhandled service error", "error", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
