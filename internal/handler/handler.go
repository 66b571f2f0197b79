package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exampro/internal/grading"
	"github.com/pavelanni/exampro/internal/handler/views"
	appI18n "github.com/pavelanni/exampro/internal/i18n"
	"github.com/pavelanni/exampro/internal/metrics"
	"github.com/pavelanni/exampro/internal/model"
	"github.com/pavelanni/exampro/internal/store"
)

const maxBodyBytes = 4 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	engine *grading.Engine
	config model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, e *grading.Engine, cfg model.ServerConfig) *Handler {
	return &Handler{store: s, engine: e, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/api/exams", h.handleListExams)
	r.Get("/api/exams/{examID}", h.handleGetPaper)
	r.Post("/api/exams/{examID}/submit", h.handleSubmit)
	r.Get("/results/{resultID}", h.handleResultPage)

	r.Post("/teacher/login", h.handleLogin)
	r.Post("/teacher/logout", h.handleLogout)

	r.Route("/api/teacher", func(tr chi.Router) {
		tr.Use(h.requireTeacher)
		tr.Post("/exams", h.handleCreateExam)
		tr.Post("/exams/upload", h.handleUploadExams)
		tr.Get("/exams/{examID}", h.handleTeacherGetExam)
		tr.Delete("/exams/{examID}", h.handleDeleteExam)
		tr.Get("/exams/{examID}/results", h.handleExamResults)
		tr.Post("/exams/{examID}/regrade", h.handleRegrade)
		tr.Patch("/results/{resultID}", h.handleOverrideScore)
		tr.Delete("/results/{resultID}", h.handleDeleteResult)
	})
}

// BasePathMiddleware makes the configured URL prefix available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError replies with a translated {"error": ...} body.
func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

// writeInvalid maps a validation failure to 422 and anything else to 500.
func writeInvalid(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  appI18n.T(r.Context(), "ErrValidation"),
			"fields": ve.Fields,
		})
		return
	}
	slog.Error("validation error", "error", err)
	writeError(w, r, http.StatusInternalServerError, "ErrInternal")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("invalid request body", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusBadRequest, "ErrInvalidJSON")
		return false
	}
	return true
}

// loadExam fetches the exam named by the examID URL parameter, replying 404 or 500 on failure.
func (h *Handler) loadExam(w http.ResponseWriter, r *http.Request) (*model.Exam, bool) {
	examID := chi.URLParam(r, "examID")
	exam, err := h.store.GetExam(examID)
	if err != nil {
		slog.Error("failed to get exam", "exam_id", examID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return nil, false
	}
	if exam == nil {
		writeError(w, r, http.StatusNotFound, "ErrExamNotFound")
		return nil, false
	}
	return exam, true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		slog.Error("failed to list exams", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	summaries := make([]model.ExamSummary, 0, len(exams))
	for _, e := range exams {
		summaries = append(summaries, e.Summary())
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, exam.Paper())
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}

	var sub model.Submission
	if !decodeJSON(w, r, &sub) {
		return
	}
	if err := model.ValidateSubmission(sub); err != nil {
		writeInvalid(w, r, err)
		return
	}

	res := h.engine.Grade(*exam, sub.Answers)
	stored := model.StoredResult{
		ExamID:      exam.ID,
		StudentInfo: sub.StudentInfo,
		Result:      res,
		Answers:     &sub.Answers,
		CompletedAt: time.Now().UnixMilli(),
		TimeSpent:   sub.TimeSpent,
	}
	id, err := h.store.SaveResult(stored)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	stored.ID = id
	metrics.ObserveGrade("submit", res)
	if res.ExceedsScale {
		slog.Warn("score exceeds scale", "result_id", id, "raw_score", res.RawScore, "max_score", res.MaxScore)
	}

	writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) handleResultPage(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultID")
	res, err := h.store.GetResult(resultID)
	if err != nil {
		slog.Error("failed to get result", "result_id", resultID, "error", err)
		http.Error(w, appI18n.T(r.Context(), "ErrInternal"), http.StatusInternalServerError)
		return
	}
	if res == nil {
		http.Error(w, appI18n.T(r.Context(), "ErrResultNotFound"), http.StatusNotFound)
		return
	}
	exam, err := h.store.GetExam(res.ExamID)
	if err != nil {
		slog.Error("failed to get exam", "exam_id", res.ExamID, "error", err)
		http.Error(w, appI18n.T(r.Context(), "ErrInternal"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ResultPage(*res, exam).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
