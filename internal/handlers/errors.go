package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"grammardrill/internal/drillfile"
	"grammardrill/internal/security"
	"grammardrill/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps a service or codec error onto a status and a
// message safe to show the client. Unknown errors become a logged 500.
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	var formatErr *drillfile.FormatError
	var validationErr *drillfile.ValidationError

	switch {
	case errors.As(err, &formatErr):
		respondWithError(w, http.StatusBadRequest, "The drill file appears to be empty or corrupt", "", nil)
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationMessage(validationErr), "", nil)
	case errors.Is(err, service.ErrInvalidFileType):
		respondWithError(w, http.StatusBadRequest, "Only .tsv drill files are accepted", "", nil)
	case errors.Is(err, service.ErrNoQuestions):
		respondWithError(w, http.StatusBadRequest, "The drill has no questions", "", nil)
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrEmptyAnswer),
		errors.Is(err, service.ErrQuestionOutOfRange),
		errors.Is(err, service.ErrNotCurrentQuestion):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	case errors.Is(err, service.ErrDrillNotFound):
		respondWithError(w, http.StatusNotFound, ErrDrillNotFound, "", nil)
	case errors.Is(err, service.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, ErrSessionNotFound, "", nil)
	case errors.Is(err, service.ErrDuplicateDrill):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, service.ErrSessionCompleted):
		respondWithError(w, http.StatusConflict, "The quiz is already complete", "", nil)
	case errors.Is(err, security.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
	case errors.Is(err, service.ErrGenerationFailed):
		respondWithError(w, http.StatusBadGateway, "The AI service did not return a usable drill", logMsg, err)
	case errors.Is(err, service.ErrAIDisabled):
		respondWithError(w, http.StatusServiceUnavailable, "AI features are not configured", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func validationMessage(err *drillfile.ValidationError) string {
	if err.Record == drillfile.RecordQuestion {
		return fmt.Sprintf("Question %d: field %s %s", err.Index+1, err.Field, err.Message)
	}
	return fmt.Sprintf("Metadata field %s %s", err.Field, err.Message)
}
