package model

// PaperChoiceQuestion is a Part 1 question as shown to students.
type PaperChoiceQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// PaperStatement is a Part 2 statement as shown to students.
type PaperStatement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PaperGroupQuestion is a Part 2 group as shown to students.
type PaperGroupQuestion struct {
	ID           string           `json:"id"`
	Text         string           `json:"text"`
	SubQuestions []PaperStatement `json:"subQuestions"`
}

// PaperTextQuestion is a Part 3 question as shown to students.
type PaperTextQuestion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ExamPaper is an exam stripped of its answer key and explanations.
type ExamPaper struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Subject         string                `json:"subject"`
	DurationMinutes int                   `json:"durationMinutes"`
	Part1           []PaperChoiceQuestion `json:"part1"`
	Part2           []PaperGroupQuestion  `json:"part2"`
	Part3           []PaperTextQuestion   `json:"part3"`
}

// Paper builds the student-facing view of the exam.
func (e Exam) Paper() ExamPaper {
	p := ExamPaper{
		ID:              e.ID,
		Title:           e.Title,
		Subject:         e.Subject,
		DurationMinutes: e.DurationMinutes,
		Part1:           make([]PaperChoiceQuestion, 0, len(e.Part1)),
		Part2:           make([]PaperGroupQuestion, 0, len(e.Part2)),
		Part3:           make([]PaperTextQuestion, 0, len(e.Part3)),
	}
	for _, q := range e.Part1 {
		p.Part1 = append(p.Part1, PaperChoiceQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
		})
	}
	for _, q := range e.Part2 {
		subs := make([]PaperStatement, 0, len(q.SubQuestions))
		for _, s := range q.SubQuestions {
			subs = append(subs, PaperStatement{ID: s.ID, Text: s.Text})
		}
		p.Part2 = append(p.Part2, PaperGroupQuestion{ID: q.ID, Text: q.Text, SubQuestions: subs})
	}
	for _, q := range e.Part3 {
		p.Part3 = append(p.Part3, PaperTextQuestion{ID: q.ID, Text: q.Text})
	}
	return p
}
