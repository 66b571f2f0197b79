// Package grading scores student submissions against an exam's answer key.
//
// Scoring is a pure function of the exam and the answers: no I/O, no clock,
// no shared state. An Engine may be used from any number of goroutines.
package grading

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/pavelanni/exampro/internal/model"
)

const (
	DefaultPart1PerQuestion = 0.25
	DefaultPart2MaxScore    = 1.0
	DefaultPart3PerQuestion = 0.5

	// DefaultMaxScore is the reference ceiling of the 10-point scale.
	DefaultMaxScore = 10.0
)

// part2Table maps the number of correctly answered statements in a
// true/false group to the fraction of Part2MaxScore awarded.
var part2Table = [...]float64{0, 0.10, 0.25, 0.50, 1.00}

// Part2Fraction returns the fraction of a group's maximum awarded for
// correctCount matching statements. Counts above four earn the full score.
func Part2Fraction(correctCount int) float64 {
	if correctCount <= 0 {
		return 0
	}
	if correctCount >= len(part2Table) {
		return part2Table[len(part2Table)-1]
	}
	return part2Table[correctCount]
}

// Weights are the resolved point values used for one exam.
type Weights struct {
	Part1PerQuestion float64 `json:"part1PerQuestion"`
	Part2MaxScore    float64 `json:"part2MaxScore"`
	Part3PerQuestion float64 `json:"part3PerQuestion"`
}

// DefaultWeights returns the standard exam weighting.
func DefaultWeights() Weights {
	return Weights{
		Part1PerQuestion: DefaultPart1PerQuestion,
		Part2MaxScore:    DefaultPart2MaxScore,
		Part3PerQuestion: DefaultPart3PerQuestion,
	}
}

// WeightsFor applies an exam's overrides on top of the defaults.
func WeightsFor(cfg *model.ScoreConfig) Weights {
	w := DefaultWeights()
	if cfg == nil {
		return w
	}
	if cfg.Part1PerQuestion != nil {
		w.Part1PerQuestion = *cfg.Part1PerQuestion
	}
	if cfg.Part2MaxScore != nil {
		w.Part2MaxScore = *cfg.Part2MaxScore
	}
	if cfg.Part3PerQuestion != nil {
		w.Part3PerQuestion = *cfg.Part3PerQuestion
	}
	return w
}

// Policy decides how the total relates to the scale ceiling.
type Policy struct {
	// MaxScore is reported with every result as the scale ceiling.
	MaxScore float64
	// Clamp caps Score at MaxScore. RawScore is never capped.
	Clamp bool
}

// DefaultPolicy reports against a 10-point scale without capping.
func DefaultPolicy() Policy {
	return Policy{MaxScore: DefaultMaxScore}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy replaces the whole scale policy.
func WithPolicy(p Policy) Option { return func(e *Engine) { e.policy = p } }

// WithMaxScore sets the reported scale ceiling. Non-positive values are ignored.
func WithMaxScore(ceiling float64) Option {
	return func(e *Engine) {
		if ceiling > 0 {
			e.policy.MaxScore = ceiling
		}
	}
}

// WithClamp enables or disables capping Score at the ceiling.
func WithClamp(clamp bool) Option { return func(e *Engine) { e.policy.Clamp = clamp } }

// Engine grades submissions under a fixed scale policy.
type Engine struct {
	policy Policy
}

// New creates an Engine with DefaultPolicy adjusted by opts.
func New(opts ...Option) *Engine {
	e := &Engine{policy: DefaultPolicy()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Policy returns the engine's scale policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

var defaultEngine = New()

// CalculateScore grades answers against exam with the default policy.
func CalculateScore(exam model.Exam, answers model.StudentAnswers) model.GradingResult {
	return defaultEngine.Grade(exam, answers)
}

// Grade scores answers against exam using the exam's own weights.
// Missing answers score zero; answers to unknown questions are ignored.
func (e *Engine) Grade(exam model.Exam, answers model.StudentAnswers) model.GradingResult {
	return e.GradeWithWeights(exam, answers, WeightsFor(exam.ScoreConfig))
}

// GradeWithWeights scores answers against exam with explicit weights.
func (e *Engine) GradeWithWeights(exam model.Exam, answers model.StudentAnswers, w Weights) model.GradingResult {
	var d model.ScoreDetails

	for _, q := range exam.Part1 {
		if chosen, ok := answers.MultipleChoice(q.ID); ok && chosen == q.CorrectOption {
			d.Part1Score += w.Part1PerQuestion
		}
	}

	for _, q := range exam.Part2 {
		d.Part2Score += w.Part2MaxScore * Part2Fraction(CountCorrectStatements(q, answers))
	}

	for _, q := range exam.Part3 {
		given, _ := answers.ShortAnswer(q.ID)
		if ShortAnswerMatches(given, q.CorrectAnswer) {
			d.Part3Score += w.Part3PerQuestion
		}
	}

	return e.result(d)
}

func (e *Engine) result(d model.ScoreDetails) model.GradingResult {
	return e.applyPolicy(model.GradingResult{
		RawScore: d.Part1Score + d.Part2Score + d.Part3Score,
		Details:  d,
	})
}

func (e *Engine) applyPolicy(res model.GradingResult) model.GradingResult {
	res.Score = res.RawScore
	res.MaxScore = e.policy.MaxScore
	res.ExceedsScale = e.policy.MaxScore > 0 && res.RawScore > e.policy.MaxScore
	if res.ExceedsScale && e.policy.Clamp {
		res.Score = e.policy.MaxScore
	}
	return res
}

// Rescore replaces the total with a hand-corrected score, keeping the
// graded breakdown and applying the engine's policy.
func (e *Engine) Rescore(prev model.GradingResult, score float64) model.GradingResult {
	return e.applyPolicy(model.GradingResult{RawScore: score, Details: prev.Details})
}

// MaxAttainable returns the total a fully correct submission earns.
func (e *Engine) MaxAttainable(exam model.Exam) float64 {
	w := WeightsFor(exam.ScoreConfig)
	return float64(len(exam.Part1))*w.Part1PerQuestion +
		float64(len(exam.Part2))*w.Part2MaxScore +
		float64(len(exam.Part3))*w.Part3PerQuestion
}

// CountCorrectStatements counts statements of q whose submitted value
// equals the key. Unanswered statements never count.
func CountCorrectStatements(q model.TrueFalseGroupQuestion, answers model.StudentAnswers) int {
	n := 0
	for _, sub := range q.SubQuestions {
		if v, ok := answers.TrueFalse(q.ID, sub.ID); ok && v == sub.IsCorrect {
			n++
		}
	}
	return n
}

// ShortAnswerMatches compares answers after trimming surrounding whitespace
// and Unicode case folding. There is no numeric or fuzzy tolerance.
func ShortAnswerMatches(given, correct string) bool {
	return normalize(given) == normalize(correct)
}

func normalize(s string) string {
	// A Caser holds state and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(s))
}
