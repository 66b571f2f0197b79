package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelanni/exampro/internal/metrics"
	"github.com/pavelanni/exampro/internal/model"
)

type createdExam struct {
	model.Exam
	MaxAttainable float64 `json:"maxAttainable"`
}

type examResults struct {
	Results []model.StoredResult `json:"results"`
	Stats   model.ExamStats      `json:"stats"`
}

type regradeSummary struct {
	Regraded  int `json:"regraded"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var exam model.Exam
	if !decodeJSON(w, r, &exam) {
		return
	}
	if exam.ID == "" {
		exam.ID = uuid.New().String()
	}
	if exam.CreatedAt == 0 {
		exam.CreatedAt = time.Now().UnixMilli()
	}
	if err := model.ValidateExam(exam); err != nil {
		writeInvalid(w, r, err)
		return
	}

	if err := h.store.SaveExam(exam); err != nil {
		slog.Error("failed to save exam", "exam_id", exam.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	attainable := h.engine.MaxAttainable(exam)
	if ceiling := h.engine.Policy().MaxScore; attainable > ceiling {
		slog.Warn("exam can score above the scale", "exam_id", exam.ID, "max_attainable", attainable, "max_score", ceiling)
	}
	slog.Info("saved exam", "exam_id", exam.ID, "questions", exam.QuestionCount())

	writeJSON(w, http.StatusCreated, createdExam{Exam: exam, MaxAttainable: attainable})
}

func (h *Handler) handleUploadExams(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidJSON")
		return
	}

	file, header, err := r.FormFile("exam_file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidJSON")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read upload", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	res, err := h.store.ImportExamFile("upload:"+header.Filename, data)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			writeInvalid(w, r, ve)
			return
		}
		slog.Warn("exam upload rejected", "filename", header.Filename, "error", err)
		writeError(w, r, http.StatusBadRequest, "ErrInvalidJSON")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleTeacherGetExam(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	found, err := h.store.DeleteExam(examID)
	if err != nil {
		slog.Error("failed to delete exam", "exam_id", examID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "ErrExamNotFound")
		return
	}
	slog.Info("deleted exam", "exam_id", examID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExamResults(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	results, err := h.store.ResultsByExam(exam.ID)
	if err != nil {
		slog.Error("failed to list results", "exam_id", exam.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	out := examResults{Results: results, Stats: model.ExamStats{ExamID: exam.ID}}
	if out.Results == nil {
		out.Results = []model.StoredResult{}
	}
	if stats := model.ComputeStats(results); len(stats) == 1 {
		out.Stats = stats[0]
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRegrade recomputes stored results after an answer key or weight change.
// Overridden results and results saved without answers keep their score.
func (h *Handler) handleRegrade(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	results, err := h.store.ResultsByExam(exam.ID)
	if err != nil {
		slog.Error("failed to list results", "exam_id", exam.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}

	var sum regradeSummary
	for _, stored := range results {
		if stored.Overridden || stored.Answers == nil {
			sum.Skipped++
			continue
		}
		res := h.engine.Grade(*exam, *stored.Answers)
		if res == stored.Result {
			sum.Unchanged++
			continue
		}
		if _, err := h.store.UpdateResult(stored.ID, res, false); err != nil {
			slog.Error("failed to update result", "result_id", stored.ID, "error", err)
			writeError(w, r, http.StatusInternalServerError, "ErrInternal")
			return
		}
		metrics.ObserveGrade("regrade", res)
		sum.Regraded++
	}

	slog.Info("regraded exam", "exam_id", exam.ID,
		"regraded", sum.Regraded, "unchanged", sum.Unchanged, "skipped", sum.Skipped)
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleOverrideScore(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultID")

	var req model.ScoreOverride
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateScoreOverride(req); err != nil {
		writeInvalid(w, r, err)
		return
	}

	stored, err := h.store.GetResult(resultID)
	if err != nil {
		slog.Error("failed to get result", "result_id", resultID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if stored == nil {
		writeError(w, r, http.StatusNotFound, "ErrResultNotFound")
		return
	}

	res := h.engine.Rescore(stored.Result, *req.Score)
	if _, err := h.store.UpdateResult(resultID, res, true); err != nil {
		slog.Error("failed to update result", "result_id", resultID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	metrics.ObserveGrade("override", res)
	slog.Info("score overridden", "result_id", resultID, "from", stored.Result.Score, "to", res.Score)

	stored.Result = res
	stored.Overridden = true
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultID")
	found, err := h.store.DeleteResult(resultID)
	if err != nil {
		slog.Error("failed to delete result", "result_id", resultID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "ErrResultNotFound")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
