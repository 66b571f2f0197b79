package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/exampro/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		exam_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		class_id TEXT NOT NULL DEFAULT '',
		student_id TEXT NOT NULL DEFAULT '',
		score REAL NOT NULL DEFAULT 0,
		raw_score REAL NOT NULL DEFAULT 0,
		max_score REAL NOT NULL DEFAULT 10,
		exceeds_scale INTEGER NOT NULL DEFAULT 0,
		details TEXT NOT NULL DEFAULT '{}',
		answers TEXT,
		completed_at INTEGER NOT NULL,
		time_spent INTEGER NOT NULL DEFAULT 0,
		overridden INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_results_exam ON results(exam_id, completed_at);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveExam inserts or replaces an exam.
func (s *Store) SaveExam(e model.Exam) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	content, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO exams (id, title, subject, duration_minutes, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, subject = excluded.subject,
		   duration_minutes = excluded.duration_minutes, content = excluded.content`,
		e.ID, e.Title, e.Subject, e.DurationMinutes, string(content), e.CreatedAt,
	)
	return err
}

// GetExam returns an exam by ID, or nil if it does not exist.
func (s *Store) GetExam(id string) (*model.Exam, error) {
	var content string
	err := s.db.QueryRow(`SELECT content FROM exams WHERE id = ?`, id).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e model.Exam
	if err := json.Unmarshal([]byte(content), &e); err != nil {
		return nil, fmt.Errorf("decode exam %s: %w", id, err)
	}
	return &e, nil
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(`SELECT id, content FROM exams ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, err
		}
		var e model.Exam
		if err := json.Unmarshal([]byte(content), &e); err != nil {
			return nil, fmt.Errorf("decode exam %s: %w", id, err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// DeleteExam removes an exam and its results. It reports whether the exam existed.
func (s *Store) DeleteExam(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExamCount returns the number of stored exams.
func (s *Store) ExamCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}
