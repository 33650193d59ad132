package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"grammardrill/internal/models"
	"grammardrill/internal/service"
)

// DrillHandler handles drill library requests
type DrillHandler struct {
	drillService  *service.DrillService
	maxUploadSize int64
}

// NewDrillHandler creates a new drill handler. maxUploadSize bounds uploads
// and edited drill text in bytes.
func NewDrillHandler(drillService *service.DrillService, maxUploadSize int64) *DrillHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &DrillHandler{
		drillService:  drillService,
		maxUploadSize: maxUploadSize,
	}
}

// CreateDrillRequest is the JSON body of structured drill creation
type CreateDrillRequest struct {
	Metadata  models.DrillMetadata    `json:"metadata"`
	Questions []models.QuestionFields `json:"questions"`
}

// VoteRequest is the JSON body of a vote
type VoteRequest struct {
	Vote string `json:"vote"` // "up" or "down"
}

func parseDrillID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid drill ID %q", r.PathValue(name))
	}
	return id, nil
}

// ListDrills returns drills matching the search, language and difficulty filters
func (h *DrillHandler) ListDrills(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.DrillFilter{
		Search:         query.Get("search"),
		TargetLanguage: query.Get("language"),
		Difficulty:     models.Difficulty(query.Get("difficulty")),
	}

	drills, err := h.drillService.ListDrills(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, "Error listing drills", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"drills": drills,
		"count":  len(drills),
	})
}

// GetDrill returns a drill with its questions
func (h *DrillHandler) GetDrill(w http.ResponseWriter, r *http.Request) {
	drillID, err := parseDrillID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDrillID, "", nil)
		return
	}

	drill, err := h.drillService.GetDrill(r.Context(), drillID)
	if err != nil {
		respondWithServiceError(w, "Error getting drill", err)
		return
	}

	respondJSON(w, http.StatusOK, drill)
}

// UploadDrill imports a drill file sent as the multipart field "file"
func (h *DrillHandler) UploadDrill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Upload too large or not multipart form data", "", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "No file uploaded", "", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read uploaded file", "Error reading upload", err)
		return
	}

	drill, err := h.drillService.ImportDrill(r.Context(), header.Filename, string(content))
	if err != nil {
		respondWithServiceError(w, "Error importing drill", err)
		return
	}

	respondJSON(w, http.StatusCreated, drill)
}

// CreateDrill stores a drill sent as structured JSON
func (h *DrillHandler) CreateDrill(w http.ResponseWriter, r *http.Request) {
	var req CreateDrillRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadSize)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	drill, err := h.drillService.CreateDrill(r.Context(), req.Metadata, req.Questions)
	if err != nil {
		respondWithServiceError(w, "Error creating drill", err)
		return
	}

	respondJSON(w, http.StatusCreated, drill)
}

// GenerateDrill asks the AI for a new drill
func (h *DrillHandler) GenerateDrill(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	drill, err := h.drillService.GenerateDrill(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, "Error generating drill", err)
		return
	}

	respondJSON(w, http.StatusCreated, drill)
}

// UpdateContent replaces a drill's content with edited drill text sent as the body
func (h *DrillHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	drillID, err := parseDrillID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDrillID, "", nil)
		return
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Drill content too large", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	drill, err := h.drillService.UpdateDrillContent(r.Context(), drillID, string(content))
	if err != nil {
		respondWithServiceError(w, "Error updating drill", err)
		return
	}

	respondJSON(w, http.StatusOK, drill)
}

// ExportDrill downloads a drill as a .tsv attachment
func (h *DrillHandler) ExportDrill(w http.ResponseWriter, r *http.Request) {
	drillID, err := parseDrillID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDrillID, "", nil)
		return
	}

	filename, content, err := h.drillService.ExportDrill(r.Context(), drillID)
	if err != nil {
		respondWithServiceError(w, "Error exporting drill", err)
		return
	}

	w.Header().Set("Content-Type", tsvContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	io.WriteString(w, content)
}

// DeleteDrill removes a drill with its questions and sessions
func (h *DrillHandler) DeleteDrill(w http.ResponseWriter, r *http.Request) {
	drillID, err := parseDrillID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDrillID, "", nil)
		return
	}

	if err := h.drillService.DeleteDrill(r.Context(), drillID); err != nil {
		respondWithServiceError(w, "Error deleting drill", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Vote records an up or down vote
func (h *DrillHandler) Vote(w http.ResponseWriter, r *http.Request) {
	drillID, err := parseDrillID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDrillID, "", nil)
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Vote != "up" && req.Vote != "down") {
		respondWithError(w, http.StatusBadRequest, `Vote must be "up" or "down"`, "", nil)
		return
	}

	drill, err := h.drillService.Vote(r.Context(), drillID, req.Vote == "up")
	if err != nil {
		respondWithServiceError(w, "Error recording vote", err)
		return
	}

	respondJSON(w, http.StatusOK, drill)
}
