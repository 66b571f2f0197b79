package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pavelanni/exampro/internal/model"
)

// ImportResult reports what ImportExamFile did with one file.
type ImportResult struct {
	Imported  int    `json:"imported"`
	Unchanged bool   `json:"unchanged"`
	Hash      string `json:"hash"`
}

// ImportExamFile validates and stores the exams in data, keyed by source for
// change detection. A file whose content hash matches the last import is skipped.
func (s *Store) ImportExamFile(source string, data []byte) (ImportResult, error) {
	sum := sha256.Sum256(data)
	res := ImportResult{Hash: hex.EncodeToString(sum[:])}

	storedHash, err := s.GetImportedFileHash(source)
	if err != nil {
		return res, fmt.Errorf("check import status for %s: %w", source, err)
	}
	if storedHash == res.Hash {
		slog.Info("exam file unchanged, skipping", "source", source)
		res.Unchanged = true
		return res, nil
	}

	exams, err := model.ParseExams(data)
	if err != nil {
		return res, fmt.Errorf("parse %s: %w", source, err)
	}
	for i := range exams {
		if exams[i].ID == "" {
			exams[i].ID = uuid.New().String()
		}
		if err := model.ValidateExam(exams[i]); err != nil {
			return res, fmt.Errorf("exam %d in %s: %w", i, source, err)
		}
	}
	for _, e := range exams {
		if err := s.SaveExam(e); err != nil {
			return res, fmt.Errorf("save exam %s from %s: %w", e.ID, source, err)
		}
		res.Imported++
	}

	if err := s.SetImportedFileHash(source, res.Hash); err != nil {
		return res, fmt.Errorf("record import for %s: %w", source, err)
	}
	if storedHash != "" {
		slog.Info("exam file changed since last import, updated exams", "source", source, "count", res.Imported)
	} else {
		slog.Info("imported exams", "source", source, "count", res.Imported)
	}
	return res, nil
}
