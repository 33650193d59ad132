package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"grammardrill/internal/security"
	"grammardrill/internal/service"
	"grammardrill/internal/validation"
)

// QuizHandler handles quiz session requests
type QuizHandler struct {
	quizService *service.QuizService
	tokens      *security.TokenManager
	tokenTTL    time.Duration
}

// NewQuizHandler creates a new quiz handler. Issued quiz tokens expire after tokenTTL.
func NewQuizHandler(quizService *service.QuizService, tokens *security.TokenManager, tokenTTL time.Duration) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		tokens:      tokens,
		tokenTTL:    tokenTTL,
	}
}

// StartQuizRequest is the optional JSON body of quiz start
type StartQuizRequest struct {
	NotifyEmail string `json:"notify_email"`
}

// StartQuizResponse carries the new session and the token for later calls
type StartQuizResponse struct {
	*service.QuizStart
	Token string `json:"token"`
}

// AnswerRequest is the JSON body of an answer submission
type AnswerRequest struct {
	QuestionIndex *int   `json:"question_index"`
	Answer        string `json:"answer"`
}

// OverrideRequest is the JSON body of an override
type OverrideRequest struct {
	QuestionIndex *int `json:"question_index"`
}

// ExplainRequest is the JSON body of an explanation request
type ExplainRequest struct {
	QuestionIndex *int   `json:"question_index"`
	UserAnswer    string `json:"user_answer"`
}

// decodeBody decodes a JSON body; an empty body leaves dst untouched
func decodeBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// StartQuiz creates a quiz session and returns the first question with a quiz token
func (h *QuizHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	drillID, err := parseDrillID(r, "drillId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDrillID, "", nil)
		return
	}

	var req StartQuizRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	if err := validation.ValidateOptionalEmail(req.NotifyEmail); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid notify_email address", "", nil)
		return
	}

	start, err := h.quizService.StartQuiz(r.Context(), drillID, req.NotifyEmail)
	if err != nil {
		respondWithServiceError(w, "Error starting quiz", err)
		return
	}

	token, err := h.tokens.Issue(start.SessionID, drillID, h.tokenTTL)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error issuing quiz token", err)
		return
	}

	respondJSON(w, http.StatusCreated, StartQuizResponse{QuizStart: start, Token: token})
}

// SubmitAnswer grades an answer to the current question
func (h *QuizHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	claims := GetQuizClaims(r.Context())

	var req AnswerRequest
	if err := decodeBody(r, &req); err != nil || req.QuestionIndex == nil {
		respondWithError(w, http.StatusBadRequest, "question_index and answer are required", "", nil)
		return
	}

	result, err := h.quizService.SubmitAnswer(r.Context(), claims.SessionID, *req.QuestionIndex, req.Answer)
	if err != nil {
		respondWithServiceError(w, "Error submitting answer", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// OverrideAnswer marks the last answered question as correct
func (h *QuizHandler) OverrideAnswer(w http.ResponseWriter, r *http.Request) {
	claims := GetQuizClaims(r.Context())

	var req OverrideRequest
	if err := decodeBody(r, &req); err != nil || req.QuestionIndex == nil {
		respondWithError(w, http.StatusBadRequest, "question_index is required", "", nil)
		return
	}

	result, err := h.quizService.OverrideAnswer(r.Context(), claims.SessionID, *req.QuestionIndex)
	if err != nil {
		respondWithServiceError(w, "Error overriding answer", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Explain returns an AI explanation of a question
func (h *QuizHandler) Explain(w http.ResponseWriter, r *http.Request) {
	claims := GetQuizClaims(r.Context())

	var req ExplainRequest
	if err := decodeBody(r, &req); err != nil || req.QuestionIndex == nil {
		respondWithError(w, http.StatusBadRequest, "question_index is required", "", nil)
		return
	}

	explanation, err := h.quizService.Explain(r.Context(), claims.SessionID, *req.QuestionIndex, req.UserAnswer)
	if err != nil {
		respondWithServiceError(w, "Error generating explanation", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}

// GetProgress returns the current question and progress of the token's session
func (h *QuizHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	claims := GetQuizClaims(r.Context())

	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" && sessionID != claims.SessionID {
		respondWithError(w, http.StatusForbidden, "Quiz token was issued for another session", "", nil)
		return
	}

	result, err := h.quizService.GetProgress(r.Context(), claims.SessionID)
	if err != nil {
		respondWithServiceError(w, "Error getting progress", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
