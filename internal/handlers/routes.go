package handlers

import "net/http"

// NewRouter registers the JSON API and wraps it with recovery and request logging
func NewRouter(drills *DrillHandler, quizzes *QuizHandler, middleware *Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Drill library
	mux.HandleFunc("GET /api/drills", drills.ListDrills)
	mux.HandleFunc("POST /api/drills", drills.CreateDrill)
	mux.HandleFunc("POST /api/drills/upload", drills.UploadDrill)
	mux.HandleFunc("POST /api/drills/generate", middleware.RateLimit(drills.GenerateDrill))
	mux.HandleFunc("GET /api/drills/{id}", drills.GetDrill)
	mux.HandleFunc("DELETE /api/drills/{id}", drills.DeleteDrill)
	mux.HandleFunc("PUT /api/drills/{id}/content", drills.UpdateContent)
	mux.HandleFunc("GET /api/drills/{id}/export", drills.ExportDrill)
	mux.HandleFunc("POST /api/drills/{id}/vote", drills.Vote)

	// Quiz sessions
	mux.HandleFunc("POST /api/quiz/{drillId}/start", quizzes.StartQuiz)
	mux.HandleFunc("POST /api/quiz/{drillId}/answer", middleware.RequireQuizToken(quizzes.SubmitAnswer))
	mux.HandleFunc("POST /api/quiz/{drillId}/override", middleware.RequireQuizToken(quizzes.OverrideAnswer))
	mux.HandleFunc("POST /api/quiz/{drillId}/explain", middleware.RateLimit(middleware.RequireQuizToken(quizzes.Explain)))
	mux.HandleFunc("GET /api/quiz/{drillId}/progress", middleware.RequireQuizToken(quizzes.GetProgress))

	return Logging(Recover(mux))
}
