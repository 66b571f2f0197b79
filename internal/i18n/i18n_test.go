package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ResultTitle")
	if got != "Exam result" {
		t.Errorf("T(ResultTitle) = %q, want 'Exam result'", got)
	}

	got = T(ctx, "Part2Title")
	if got != "Part 2: True/False" {
		t.Errorf("T(Part2Title) = %q, want 'Part 2: True/False'", got)
	}
}

func TestTranslateVietnamese(t *testing.T) {
	ctx := initLang(t, "vi")

	got := T(ctx, "ResultTitle")
	if got != "Kết quả bài thi" {
		t.Errorf("T(ResultTitle) = %q, want 'Kết quả bài thi'", got)
	}

	got = T(ctx, "Part3Title")
	if got != "Phần 3: Trả lời ngắn" {
		t.Errorf("T(Part3Title) = %q, want 'Phần 3: Trả lời ngắn'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "Minutes", 1)
	if got1 != "1 minute" {
		t.Errorf("Tp(Minutes, 1) = %q, want '1 minute'", got1)
	}

	got5 := Tp(ctx, "Minutes", 5)
	if got5 != "5 minutes" {
		t.Errorf("Tp(Minutes, 5) = %q, want '5 minutes'", got5)
	}

	vi := WithLocalizer(context.Background(), NewLocalizer("vi"))
	if got := Tp(vi, "Questions", 1); got != "1 câu hỏi" {
		t.Errorf("Tp(Questions, 1) in vi = %q, want '1 câu hỏi'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ScoreOutOf", map[string]any{"Max": 10})
	if got != "Score / 10" {
		t.Errorf("Td(ScoreOutOf, Max=10) = %q, want 'Score / 10'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMatch(t *testing.T) {
	initLang(t, "en")

	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"no preference", nil, "en"},
		{"accept-language vi", []string{"", "vi-VN,vi;q=0.9,en;q=0.8"}, "vi"},
		{"query wins", []string{"en", "vi"}, "en"},
		{"unsupported falls back", []string{"fr-FR"}, "en"},
		{"garbage skipped", []string{"!!", "vi"}, "vi"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Match(tc.prefs...).String(); got != tc.want {
				t.Errorf("Match(%q) = %q, want %q", tc.prefs, got, tc.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	initLang(t, "en")

	var title, lang string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = T(r.Context(), "ResultTitle")
		lang = Lang(r.Context()).String()
	}))

	req := httptest.NewRequest(http.MethodGet, "/results/1", nil)
	req.Header.Set("Accept-Language", "vi")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if title != "Kết quả bài thi" || lang != "vi" {
		t.Errorf("got title=%q lang=%q, want Vietnamese", title, lang)
	}
	if got := rec.Header().Get("Content-Language"); got != "vi" {
		t.Errorf("Content-Language = %q, want 'vi'", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/results/1?lang=en", nil)
	req.Header.Set("Accept-Language", "vi")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if title != "Exam result" {
		t.Errorf("query parameter should override header, got %q", title)
	}
}
