package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/exampro/internal/model"
)

const resultColumns = `id, exam_id, student_name, class_id, student_id, score, raw_score, max_score,
	exceeds_scale, details, answers, completed_at, time_spent, overridden`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (model.StoredResult, error) {
	var (
		r       model.StoredResult
		details string
		answers sql.NullString
	)
	err := row.Scan(&r.ID, &r.ExamID, &r.StudentInfo.Name, &r.StudentInfo.ClassID, &r.StudentInfo.StudentID,
		&r.Result.Score, &r.Result.RawScore, &r.Result.MaxScore, &r.Result.ExceedsScale,
		&details, &answers, &r.CompletedAt, &r.TimeSpent, &r.Overridden)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(details), &r.Result.Details); err != nil {
		return r, fmt.Errorf("decode details of result %s: %w", r.ID, err)
	}
	if answers.Valid {
		var a model.StudentAnswers
		if err := json.Unmarshal([]byte(answers.String), &a); err != nil {
			return r, fmt.Errorf("decode answers of result %s: %w", r.ID, err)
		}
		r.Answers = &a
	}
	return r, nil
}

// SaveResult stores a graded submission and returns its new ID.
func (s *Store) SaveResult(r model.StoredResult) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CompletedAt == 0 {
		r.CompletedAt = time.Now().UnixMilli()
	}
	details, err := json.Marshal(r.Result.Details)
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	var answers sql.NullString
	if r.Answers != nil {
		data, err := json.Marshal(r.Answers)
		if err != nil {
			return "", fmt.Errorf("marshal answers: %w", err)
		}
		answers = sql.NullString{String: string(data), Valid: true}
	}
	_, err = s.db.Exec(
		`INSERT INTO results (`+resultColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ExamID, r.StudentInfo.Name, r.StudentInfo.ClassID, r.StudentInfo.StudentID,
		r.Result.Score, r.Result.RawScore, r.Result.MaxScore, r.Result.ExceedsScale,
		string(details), answers, r.CompletedAt, r.TimeSpent, r.Overridden,
	)
	if err != nil {
		slog.Error("failed to save result", "exam_id", r.ExamID, "error", err)
		return "", err
	}
	slog.Info("saved result", "id", r.ID, "exam_id", r.ExamID, "score", r.Result.Score)
	return r.ID, nil
}

// GetResult returns a result by ID, or nil if it does not exist.
func (s *Store) GetResult(id string) (*model.StoredResult, error) {
	r, err := scanResult(s.db.QueryRow(`SELECT `+resultColumns+` FROM results WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResults returns every stored result, newest first.
func (s *Store) ListResults() ([]model.StoredResult, error) {
	return s.queryResults(`SELECT ` + resultColumns + ` FROM results ORDER BY completed_at DESC, id`)
}

// ResultsByExam returns the results of one exam, newest first.
func (s *Store) ResultsByExam(examID string) ([]model.StoredResult, error) {
	return s.queryResults(`SELECT `+resultColumns+` FROM results WHERE exam_id = ? ORDER BY completed_at DESC, id`, examID)
}

func (s *Store) queryResults(query string, args ...any) ([]model.StoredResult, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// UpdateResult replaces the grading outcome of a stored result.
func (s *Store) UpdateResult(id string, res model.GradingResult, overridden bool) (bool, error) {
	details, err := json.Marshal(res.Details)
	if err != nil {
		return false, fmt.Errorf("marshal details: %w", err)
	}
	out, err := s.db.Exec(
		`UPDATE results SET score = ?, raw_score = ?, max_score = ?, exceeds_scale = ?, details = ?, overridden = ?
		 WHERE id = ?`,
		res.Score, res.RawScore, res.MaxScore, res.ExceedsScale, string(details), overridden, id,
	)
	if err != nil {
		return false, err
	}
	n, err := out.RowsAffected()
	return n > 0, err
}

// DeleteResult removes a result. It reports whether the result existed.
func (s *Store) DeleteResult(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
