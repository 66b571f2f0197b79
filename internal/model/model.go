package model

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// MultipleChoiceQuestion is a Part 1 question with a single correct option.
type MultipleChoiceQuestion struct {
	ID            string   `json:"id" validate:"required"`
	Text          string   `json:"text"`
	Options       []string `json:"options" validate:"len=4"`
	CorrectOption int      `json:"correctOption" validate:"gte=0"`
	Explanation   string   `json:"explanation,omitempty"`
}

// SubQuestion is one true/false statement of a Part 2 group.
type SubQuestion struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// TrueFalseGroupQuestion is a Part 2 question stem with four statements.
type TrueFalseGroupQuestion struct {
	ID           string        `json:"id" validate:"required"`
	Text         string        `json:"text"`
	SubQuestions []SubQuestion `json:"subQuestions" validate:"len=4,unique=ID,dive"`
	Explanation  string        `json:"explanation,omitempty"`
}

// ShortAnswerQuestion is a Part 3 question with a free-text answer.
type ShortAnswerQuestion struct {
	ID            string `json:"id" validate:"required"`
	Text          string `json:"text"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// ScoreConfig holds optional per-exam weight overrides. Nil fields use defaults.
type ScoreConfig struct {
	Part1PerQuestion *float64 `json:"part1PerQuestion,omitempty" validate:"omitempty,gte=0"`
	Part2MaxScore    *float64 `json:"part2MaxScore,omitempty" validate:"omitempty,gte=0"`
	Part3PerQuestion *float64 `json:"part3PerQuestion,omitempty" validate:"omitempty,gte=0"`
}

// Exam is an authored set of questions with its embedded answer key.
type Exam struct {
	ID              string                   `json:"id" validate:"required"`
	Title           string                   `json:"title" validate:"required"`
	Subject         string                   `json:"subject"`
	DurationMinutes int                      `json:"durationMinutes" validate:"gte=0"`
	Part1           []MultipleChoiceQuestion `json:"part1" validate:"unique=ID,dive"`
	Part2           []TrueFalseGroupQuestion `json:"part2" validate:"unique=ID,dive"`
	Part3           []ShortAnswerQuestion    `json:"part3" validate:"unique=ID,dive"`
	ScoreConfig     *ScoreConfig             `json:"scoreConfig,omitempty"`
	CreatedAt       int64                    `json:"createdAt"`
}

// QuestionCount returns the number of questions across all parts.
func (e Exam) QuestionCount() int {
	return len(e.Part1) + len(e.Part2) + len(e.Part3)
}

// ExamSummary is the listing view of an exam.
type ExamSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Subject         string `json:"subject"`
	DurationMinutes int    `json:"durationMinutes"`
	Part1Count      int    `json:"part1Count"`
	Part2Count      int    `json:"part2Count"`
	Part3Count      int    `json:"part3Count"`
	CreatedAt       int64  `json:"createdAt"`
}

// Summary builds the listing view of the exam.
func (e Exam) Summary() ExamSummary {
	return ExamSummary{
		ID:              e.ID,
		Title:           e.Title,
		Subject:         e.Subject,
		DurationMinutes: e.DurationMinutes,
		Part1Count:      len(e.Part1),
		Part2Count:      len(e.Part2),
		Part3Count:      len(e.Part3),
		CreatedAt:       e.CreatedAt,
	}
}

// ScoreDetails is the additive per-part breakdown of a score.
type ScoreDetails struct {
	Part1Score float64 `json:"part1Score"`
	Part2Score float64 `json:"part2Score"`
	Part3Score float64 `json:"part3Score"`
}

// GradingResult is the output of scoring one submission.
type GradingResult struct {
	Score        float64      `json:"score"`
	RawScore     float64      `json:"rawScore"`
	MaxScore     float64      `json:"maxScore"`
	ExceedsScale bool         `json:"exceedsScale,omitempty"`
	Details      ScoreDetails `json:"details"`
}

// StudentInfo identifies the student who submitted an exam.
type StudentInfo struct {
	Name      string `json:"name" validate:"required"`
	ClassID   string `json:"classId"`
	StudentID string `json:"studentId"`
}

// StoredResult is a graded submission as persisted.
type StoredResult struct {
	ID          string          `json:"id,omitempty"`
	ExamID      string          `json:"examId"`
	StudentInfo StudentInfo     `json:"studentInfo"`
	Result      GradingResult   `json:"result"`
	Answers     *StudentAnswers `json:"answers,omitempty"`
	CompletedAt int64           `json:"completedAt"`
	TimeSpent   int             `json:"timeSpent"`
	Overridden  bool            `json:"overridden,omitempty"`
}

// Submission is the payload a student sends when finishing an exam.
type Submission struct {
	StudentInfo StudentInfo    `json:"studentInfo"`
	Answers     StudentAnswers `json:"answers"`
	TimeSpent   int            `json:"timeSpent" validate:"gte=0"`
}

// ScoreOverride is a teacher's manual replacement of a stored score.
type ScoreOverride struct {
	Score *float64 `json:"score" validate:"required,gte=0"`
}

// TeacherLogin is the body of a teacher login request.
type TeacherLogin struct {
	Password string `json:"password" validate:"required"`
}

// AuthSession represents a teacher authentication session.
type AuthSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// ServerConfig holds runtime server parameters set via CLI flags.
type ServerConfig struct {
	BasePath      string // URL prefix for sub-path deployments (e.g. "/exam")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}

// MetaTeacherPasswordHash is the exam_metadata key holding the bcrypt hash
// of the teacher password.
const MetaTeacherPasswordHash = "teacher_password_hash"

// ParseExams decodes an exam file holding either one exam object or an array of exams.
func ParseExams(data []byte) ([]Exam, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var exams []Exam
		if err := json.Unmarshal(trimmed, &exams); err != nil {
			return nil, err
		}
		return exams, nil
	}
	var e Exam
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, err
	}
	return []Exam{e}, nil
}
