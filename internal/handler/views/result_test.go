package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	appI18n "github.com/pavelanni/exampro/internal/i18n"
	"github.com/pavelanni/exampro/internal/model"
)

func renderResult(t *testing.T, lang string, res model.StoredResult, exam *model.Exam) string {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}
	ctx := appI18n.WithLang(context.Background(), appI18n.Match(lang))
	var buf bytes.Buffer
	if err := ResultPage(res, exam).Render(ctx, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func testResult() (model.StoredResult, *model.Exam) {
	exam := &model.Exam{
		ID:    "e1",
		Title: "Toán 12",
		Part1: []model.MultipleChoiceQuestion{
			{ID: "q1", Text: "2+2?", Options: []string{"3", "4", "5", "6"}, CorrectOption: 1, Explanation: "Basic sum"},
		},
		Part3: []model.ShortAnswerQuestion{{ID: "q3", Text: "<b>capital</b>", CorrectAnswer: "Ha Noi"}},
	}
	res := model.StoredResult{
		ID:          "r1",
		ExamID:      "e1",
		StudentInfo: model.StudentInfo{Name: "An <script>", ClassID: "12A1"},
		Result: model.GradingResult{
			Score: 0.75, RawScore: 0.75, MaxScore: 10,
			Details: model.ScoreDetails{Part1Score: 0.25, Part3Score: 0.5},
		},
		Answers:   &model.StudentAnswers{Part1: map[string]int{"q1": 1}, Part3: map[string]string{"q3": "ha noi"}},
		TimeSpent: 300,
	}
	return res, exam
}

func TestResultPageEnglish(t *testing.T) {
	res, exam := testResult()
	html := renderResult(t, "en", res, exam)

	for _, want := range []string{
		`<html lang="en">`,
		"Exam result",
		"0.75",
		"Score / 10",
		"5 minutes",
		"Part 1: Multiple choice",
		"Basic sum",
		"&lt;b&gt;capital&lt;/b&gt;",
		"An &lt;script&gt;",
		`href="/results/r1?lang=vi"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("student name must be escaped")
	}
	if strings.Contains(html, "Part 2: True/False") {
		t.Error("empty part should not be rendered")
	}
}

func TestResultPageVietnamese(t *testing.T) {
	res, exam := testResult()
	res.Result.ExceedsScale = true
	res.Overridden = true
	html := renderResult(t, "vi", res, exam)

	for _, want := range []string{
		`<html lang="vi">`,
		"Kết quả bài thi",
		"Phần 1: Trắc nghiệm",
		"vượt quá thang điểm 10",
		"giáo viên điều chỉnh",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
}

func TestResultPageWithoutAnswers(t *testing.T) {
	res, exam := testResult()
	res.Answers = nil
	html := renderResult(t, "en", res, exam)

	if !strings.Contains(html, "Answers were not recorded") {
		t.Error("expected missing-answers note")
	}
	if strings.Contains(html, "Part 1: Multiple choice") {
		t.Error("review should be omitted without answers")
	}
}
