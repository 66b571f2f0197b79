package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/exampro/internal/grading"
	appI18n "github.com/pavelanni/exampro/internal/i18n"
	"github.com/pavelanni/exampro/internal/model"
)

// pageWriter accumulates the first write error so markup can be emitted without
// checking every call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *pageWriter) printf(format string, args ...any) {
	p.text(fmt.Sprintf(format, args...))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatScale(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:860px;margin:2rem auto;padding:0 1rem;color:#1f2937}
.card{border:1px solid #e5e7eb;border-radius:12px;padding:1.5rem;margin-bottom:1.5rem}
.score{font-size:3rem;font-weight:800;color:#1e3a8a}
.parts{display:grid;grid-template-columns:repeat(3,1fr);gap:1rem}
.ok{color:#15803d}.bad{color:#b91c1c}.note{background:#fef9c3;padding:.75rem;border-radius:8px}
.muted{color:#6b7280;font-size:.875rem}`

// Layout wraps body in the HTML document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<!DOCTYPE html><html lang="`)
		p.text(appI18n.Lang(ctx).String())
		p.raw(`"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		p.text(title + " | " + appI18n.T(ctx, "AppTitle"))
		p.raw(`</title><style>`)
		p.raw(pageStyle)
		p.raw(`</style></head><body>`)
		if p.err != nil {
			return p.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		p.raw(`</body></html>`)
		return p.err
	})
}

// ResultPage renders a stored result with its score breakdown and, when the exam
// and the submitted answers are available, a per-question review.
func ResultPage(res model.StoredResult, exam *model.Exam) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		languageLinks(ctx, p, model.BasePathFromContext(ctx)+"/results/"+res.ID)
		scoreCard(ctx, p, res, exam)
		switch {
		case exam == nil:
		case res.Answers == nil:
			p.raw(`<p class="muted">`)
			p.text(appI18n.T(ctx, "AnswersUnavailable"))
			p.raw(`</p>`)
		default:
			reviewPart1(ctx, p, exam.Part1, *res.Answers)
			reviewPart2(ctx, p, exam.Part2, *res.Answers)
			reviewPart3(ctx, p, exam.Part3, *res.Answers)
		}
		return p.err
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout(appI18n.T(ctx, "ResultTitle"), body).Render(ctx, w)
	})
}

func languageLinks(ctx context.Context, p *pageWriter, href string) {
	current := appI18n.Lang(ctx)
	p.raw(`<nav class="muted">`)
	for i, tag := range appI18n.Supported() {
		if i > 0 {
			p.raw(` | `)
		}
		if tag == current {
			p.raw(`<strong>`)
			p.text(tag.String())
			p.raw(`</strong>`)
			continue
		}
		p.raw(`<a href="`)
		p.text(href + "?lang=" + tag.String())
		p.raw(`">`)
		p.text(tag.String())
		p.raw(`</a>`)
	}
	p.raw(`</nav>`)
}

func scoreCard(ctx context.Context, p *pageWriter, res model.StoredResult, exam *model.Exam) {
	p.raw(`<section class="card"><h1>`)
	p.text(appI18n.T(ctx, "ResultTitle"))
	p.raw(`</h1><p>`)
	if exam != nil {
		p.text(exam.Title + " - ")
	}
	p.text(res.StudentInfo.Name)
	p.raw(`</p><dl>`)
	if res.StudentInfo.ClassID != "" {
		p.raw(`<dt>`)
		p.text(appI18n.T(ctx, "Class"))
		p.raw(`</dt><dd>`)
		p.text(res.StudentInfo.ClassID)
		p.raw(`</dd>`)
	}
	if res.StudentInfo.StudentID != "" {
		p.raw(`<dt>`)
		p.text(appI18n.T(ctx, "StudentID"))
		p.raw(`</dt><dd>`)
		p.text(res.StudentInfo.StudentID)
		p.raw(`</dd>`)
	}
	p.raw(`<dt>`)
	p.text(appI18n.T(ctx, "TimeSpent"))
	p.raw(`</dt><dd>`)
	p.text(appI18n.Tp(ctx, "Minutes", res.TimeSpent/60))
	p.raw(`</dd></dl>`)

	p.raw(`<div class="score">`)
	p.text(formatScore(res.Result.Score))
	p.raw(`</div><div class="muted">`)
	p.text(appI18n.Td(ctx, "ScoreOutOf", map[string]any{"Max": formatScale(res.Result.MaxScore)}))
	p.raw(`</div>`)

	if res.Result.ExceedsScale {
		p.raw(`<p class="note">`)
		p.text(appI18n.Td(ctx, "ExceedsScale", map[string]any{
			"Raw": formatScore(res.Result.RawScore),
			"Max": formatScale(res.Result.MaxScore),
		}))
		p.raw(`</p>`)
	}
	if res.Overridden {
		p.raw(`<p class="note">`)
		p.text(appI18n.T(ctx, "Overridden"))
		p.raw(`</p>`)
	}

	p.raw(`<div class="parts">`)
	for i, v := range []float64{res.Result.Details.Part1Score, res.Result.Details.Part2Score, res.Result.Details.Part3Score} {
		p.raw(`<div><strong>`)
		p.text(appI18n.Td(ctx, "PartN", map[string]any{"N": i + 1}))
		p.raw(`</strong><br>`)
		p.text(formatScore(v))
		p.raw(`</div>`)
	}
	p.raw(`</div></section>`)
}

func mark(p *pageWriter, correct bool) {
	if correct {
		p.raw(`<span class="ok">&#10003;</span> `)
	} else {
		p.raw(`<span class="bad">&#10007;</span> `)
	}
}

func explanation(ctx context.Context, p *pageWriter, text string) {
	if text == "" {
		return
	}
	p.raw(`<p class="note"><strong>`)
	p.text(appI18n.T(ctx, "Explanation"))
	p.raw(`:</strong> `)
	p.text(text)
	p.raw(`</p>`)
}

func reviewPart1(ctx context.Context, p *pageWriter, qs []model.MultipleChoiceQuestion, answers model.StudentAnswers) {
	if len(qs) == 0 {
		return
	}
	p.raw(`<section class="card"><h2>`)
	p.text(appI18n.T(ctx, "Part1Title"))
	p.raw(`</h2><ol>`)
	for _, q := range qs {
		chosen, answered := answers.MultipleChoice(q.ID)
		p.raw(`<li>`)
		mark(p, answered && chosen == q.CorrectOption)
		p.text(q.Text)
		p.raw(`<ul>`)
		for i, opt := range q.Options {
			class := "muted"
			switch {
			case i == q.CorrectOption:
				class = "ok"
			case answered && i == chosen:
				class = "bad"
			}
			p.raw(`<li class="` + class + `">`)
			p.printf("%c. %s", 'A'+rune(i), opt)
			p.raw(`</li>`)
		}
		p.raw(`</ul>`)
		explanation(ctx, p, q.Explanation)
		p.raw(`</li>`)
	}
	p.raw(`</ol></section>`)
}

func reviewPart2(ctx context.Context, p *pageWriter, qs []model.TrueFalseGroupQuestion, answers model.StudentAnswers) {
	if len(qs) == 0 {
		return
	}
	p.raw(`<section class="card"><h2>`)
	p.text(appI18n.T(ctx, "Part2Title"))
	p.raw(`</h2><ol>`)
	for _, q := range qs {
		p.raw(`<li>`)
		p.text(q.Text)
		p.raw(` <span class="muted">(`)
		p.printf("%d/%d", grading.CountCorrectStatements(q, answers), len(q.SubQuestions))
		p.raw(`)</span><ul>`)
		for _, sq := range q.SubQuestions {
			given, answered := answers.TrueFalse(q.ID, sq.ID)
			p.raw(`<li>`)
			mark(p, answered && given == sq.IsCorrect)
			p.text(sq.Text)
			p.raw(` <span class="muted">`)
			p.text(appI18n.T(ctx, "CorrectAnswer") + ": ")
			if sq.IsCorrect {
				p.text(appI18n.T(ctx, "True"))
			} else {
				p.text(appI18n.T(ctx, "False"))
			}
			p.raw(`</span></li>`)
		}
		p.raw(`</ul>`)
		explanation(ctx, p, q.Explanation)
		p.raw(`</li>`)
	}
	p.raw(`</ol></section>`)
}

func reviewPart3(ctx context.Context, p *pageWriter, qs []model.ShortAnswerQuestion, answers model.StudentAnswers) {
	if len(qs) == 0 {
		return
	}
	p.raw(`<section class="card"><h2>`)
	p.text(appI18n.T(ctx, "Part3Title"))
	p.raw(`</h2><ol>`)
	for _, q := range qs {
		given, answered := answers.ShortAnswer(q.ID)
		p.raw(`<li>`)
		mark(p, answered && grading.ShortAnswerMatches(given, q.CorrectAnswer))
		p.text(q.Text)
		p.raw(`<p>`)
		p.text(appI18n.T(ctx, "YourAnswer") + ": ")
		if answered && given != "" {
			p.text(given)
		} else {
			p.raw(`<em class="muted">`)
			p.text(appI18n.T(ctx, "NoAnswer"))
			p.raw(`</em>`)
		}
		p.raw(`</p><p class="ok">`)
		p.text(appI18n.T(ctx, "CorrectAnswer") + ": " + q.CorrectAnswer)
		p.raw(`</p>`)
		explanation(ctx, p, q.Explanation)
		p.raw(`</li>`)
	}
	p.raw(`</ol></section>`)
}
