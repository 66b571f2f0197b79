package store

import (
	"testing"

	"github.com/pavelanni/exampro/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestExam(t *testing.T, s *Store, id, title string, createdAt int64) model.Exam {
	t.Helper()
	e := model.Exam{
		ID:              id,
		Title:           title,
		Subject:         "Physics",
		DurationMinutes: 45,
		Part1: []model.MultipleChoiceQuestion{
			{ID: "q1", Text: "Pick b", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
		},
		Part3:     []model.ShortAnswerQuestion{{ID: "q3", CorrectAnswer: "42"}},
		CreatedAt: createdAt,
	}
	if err := s.SaveExam(e); err != nil {
		t.Fatalf("insertTestExam: %v", err)
	}
	return e
}

func insertTestResult(t *testing.T, s *Store, examID, name string, score float64, completedAt int64) string {
	t.Helper()
	id, err := s.SaveResult(model.StoredResult{
		ExamID:      examID,
		StudentInfo: model.StudentInfo{Name: name, ClassID: "12A1", StudentID: name + "-id"},
		Result: model.GradingResult{
			Score:    score,
			RawScore: score,
			MaxScore: 10,
			Details:  model.ScoreDetails{Part1Score: score},
		},
		Answers:     &model.StudentAnswers{Part1: map[string]int{"q1": 1}},
		CompletedAt: completedAt,
		TimeSpent:   600,
	})
	if err != nil {
		t.Fatalf("insertTestResult: %v", err)
	}
	return id
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty DB should return zero count and empty list.
	count, err := s.ExamCount()
	if err != nil {
		t.Fatalf("ExamCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 exams, got %d", count)
	}

	// Insert and retrieve.
	insertTestExam(t, s, "e1", "Midterm", 1000)
	got, err := s.GetExam("e1")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got == nil {
		t.Fatal("expected exam, got nil")
	}
	if got.Title != "Midterm" || got.DurationMinutes != 45 {
		t.Errorf("unexpected exam: %+v", got)
	}
	if len(got.Part1) != 1 || got.Part1[0].CorrectOption != 1 {
		t.Errorf("answer key not round-tripped: %+v", got.Part1)
	}

	// Not found.
	missing, err := s.GetExam("nope")
	if err != nil {
		t.Fatalf("GetExam missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing exam, got %+v", missing)
	}

	// Replace keeps a single row.
	updated := *got
	updated.Title = "Midterm v2"
	if err := s.SaveExam(updated); err != nil {
		t.Fatalf("SaveExam replace: %v", err)
	}
	insertTestExam(t, s, "e2", "Final", 2000)

	list, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(list))
	}
	// Newest first.
	if list[0].ID != "e2" || list[1].Title != "Midterm v2" {
		t.Errorf("unexpected order: %s, %s", list[0].ID, list[1].ID)
	}

	ok, err := s.DeleteExam("e1")
	if err != nil || !ok {
		t.Fatalf("DeleteExam: %v, %v", ok, err)
	}
	ok, err = s.DeleteExam("e1")
	if err != nil || ok {
		t.Fatalf("DeleteExam twice: %v, %v", ok, err)
	}
}

func TestSaveExamSetsCreatedAt(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveExam(model.Exam{ID: "e1", Title: "T"}); err != nil {
		t.Fatalf("SaveExam: %v", err)
	}
	got, _ := s.GetExam("e1")
	if got == nil || got.CreatedAt == 0 {
		t.Fatalf("expected createdAt to be set, got %+v", got)
	}
}

func TestResults(t *testing.T) {
	s := newTestStore(t)
	insertTestExam(t, s, "e1", "Midterm", 1000)
	insertTestExam(t, s, "e2", "Final", 2000)

	first := insertTestResult(t, s, "e1", "An", 7.5, 100)
	second := insertTestResult(t, s, "e1", "Binh", 9, 200)
	insertTestResult(t, s, "e2", "Chi", 5, 300)

	if first == "" || first == second {
		t.Fatalf("expected distinct generated IDs, got %q and %q", first, second)
	}

	got, err := s.GetResult(first)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got == nil {
		t.Fatal("expected result, got nil")
	}
	if got.StudentInfo.Name != "An" || got.Result.Score != 7.5 || got.TimeSpent != 600 {
		t.Errorf("unexpected result: %+v", got)
	}
	if got.Result.Details.Part1Score != 7.5 {
		t.Errorf("details not round-tripped: %+v", got.Result.Details)
	}
	if got.Answers == nil || got.Answers.Part1["q1"] != 1 {
		t.Errorf("answers not round-tripped: %+v", got.Answers)
	}

	missing, err := s.GetResult("nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing result, got %v, %v", missing, err)
	}

	byExam, err := s.ResultsByExam("e1")
	if err != nil {
		t.Fatalf("ResultsByExam: %v", err)
	}
	if len(byExam) != 2 {
		t.Fatalf("expected 2 results, got %d", len(byExam))
	}
	// Newest first.
	if byExam[0].ID != second {
		t.Errorf("expected newest result first, got %s", byExam[0].StudentInfo.Name)
	}

	all, err := s.ListResults()
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}
}

func TestResultWithoutAnswers(t *testing.T) {
	s := newTestStore(t)
	insertTestExam(t, s, "e1", "Midterm", 1000)

	id, err := s.SaveResult(model.StoredResult{
		ExamID:      "e1",
		StudentInfo: model.StudentInfo{Name: "An"},
		Result:      model.GradingResult{Score: 3, MaxScore: 10},
	})
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, _ := s.GetResult(id)
	if got == nil || got.Answers != nil {
		t.Fatalf("expected stored result without answers, got %+v", got)
	}
	if got.CompletedAt == 0 {
		t.Error("expected completedAt to be set")
	}
}

func TestUpdateAndDeleteResult(t *testing.T) {
	s := newTestStore(t)
	insertTestExam(t, s, "e1", "Midterm", 1000)
	id := insertTestResult(t, s, "e1", "An", 6, 100)

	ok, err := s.UpdateResult(id, model.GradingResult{
		Score:    8.5,
		RawScore: 8.5,
		MaxScore: 10,
		Details:  model.ScoreDetails{Part1Score: 6},
	}, true)
	if err != nil || !ok {
		t.Fatalf("UpdateResult: %v, %v", ok, err)
	}
	got, _ := s.GetResult(id)
	if got.Result.Score != 8.5 || !got.Overridden {
		t.Errorf("expected overridden score 8.5, got %+v", got)
	}
	if got.Result.Details.Part1Score != 6 {
		t.Errorf("expected breakdown kept, got %+v", got.Result.Details)
	}

	ok, err = s.UpdateResult("nope", model.GradingResult{}, false)
	if err != nil || ok {
		t.Fatalf("UpdateResult missing: %v, %v", ok, err)
	}

	ok, err = s.DeleteResult(id)
	if err != nil || !ok {
		t.Fatalf("DeleteResult: %v, %v", ok, err)
	}
	got, _ = s.GetResult(id)
	if got != nil {
		t.Error("expected result to be deleted")
	}
}

func TestDeleteExamRemovesResults(t *testing.T) {
	s := newTestStore(t)
	insertTestExam(t, s, "e1", "Midterm", 1000)
	insertTestResult(t, s, "e1", "An", 6, 100)

	if _, err := s.DeleteExam("e1"); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	results, err := s.ResultsByExam("e1")
	if err != nil {
		t.Fatalf("ResultsByExam: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected results to be removed with exam, got %d", len(results))
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	// Missing file returns empty string.
	hash, err := s.GetImportedFileHash("/some/path.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/path.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.json")
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	// Update existing.
	if err := s.SetImportedFileHash("/some/path.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("teacher_password_hash")
	if err != nil || v != "" {
		t.Fatalf("expected empty metadata, got %q, %v", v, err)
	}
	if err := s.SetMetadata("teacher_password_hash", "x"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("teacher_password_hash", "y"); err != nil {
		t.Fatalf("SetMetadata update: %v", err)
	}
	v, _ = s.GetMetadata("teacher_password_hash")
	if v != "y" {
		t.Errorf("expected 'y', got %q", v)
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)

	token, err := s.CreateAuthSession()
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char token, got %d", len(token))
	}

	sess, err := s.GetAuthSession(token)
	if err != nil || sess == nil {
		t.Fatalf("GetAuthSession: %v, %v", sess, err)
	}

	if err := s.CleanupExpiredSessions(); err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if sess, _ := s.GetAuthSession(token); sess == nil {
		t.Error("fresh session should survive cleanup")
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil || sess != nil {
		t.Errorf("expected nil session after delete, got %v, %v", sess, err)
	}
}

func TestImportExamFile(t *testing.T) {
	s := newTestStore(t)

	single := []byte(`{"id":"e1","title":"Midterm","part1":[{"id":"q1","options":["a","b","c","d"],"correctOption":2}]}`)
	res, err := s.ImportExamFile("exams/midterm.json", single)
	if err != nil {
		t.Fatalf("ImportExamFile: %v", err)
	}
	if res.Imported != 1 || res.Unchanged || res.Hash == "" {
		t.Fatalf("unexpected import result: %+v", res)
	}

	// Same content is skipped.
	res, err = s.ImportExamFile("exams/midterm.json", single)
	if err != nil {
		t.Fatalf("ImportExamFile again: %v", err)
	}
	if !res.Unchanged || res.Imported != 0 {
		t.Fatalf("expected unchanged file to be skipped, got %+v", res)
	}

	// Arrays are accepted and missing ids are assigned.
	batch := []byte(`[{"title":"Quiz A"},{"id":"e3","title":"Quiz B"}]`)
	res, err = s.ImportExamFile("exams/quizzes.json", batch)
	if err != nil {
		t.Fatalf("ImportExamFile batch: %v", err)
	}
	if res.Imported != 2 {
		t.Fatalf("expected 2 imported, got %+v", res)
	}
	if count, _ := s.ExamCount(); count != 3 {
		t.Fatalf("expected 3 exams, got %d", count)
	}
}

func TestImportExamFileRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"id":`},
		{"three options", `{"id":"e1","title":"T","part1":[{"id":"q1","options":["a","b","c"],"correctOption":0}]}`},
		{"missing title", `[{"id":"e1"}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.ImportExamFile(tc.name+".json", []byte(tc.data)); err == nil {
				t.Fatal("expected error")
			}
			if hash, _ := s.GetImportedFileHash(tc.name + ".json"); hash != "" {
				t.Errorf("rejected file should not be recorded, got hash %q", hash)
			}
		})
	}
	if count, _ := s.ExamCount(); count != 0 {
		t.Errorf("expected no exams after rejected imports, got %d", count)
	}
}
