package model

// StudentAnswers is the response set a student submits.
// Absent keys mean the question was not answered.
type StudentAnswers struct {
	Part1 map[string]int             `json:"part1"`
	Part2 map[string]map[string]bool `json:"part2"`
	Part3 map[string]string          `json:"part3"`
}

// MultipleChoice returns the option index chosen for a Part 1 question.
func (a StudentAnswers) MultipleChoice(questionID string) (int, bool) {
	v, ok := a.Part1[questionID]
	return v, ok
}

// TrueFalse returns the value chosen for one statement of a Part 2 group.
func (a StudentAnswers) TrueFalse(questionID, subID string) (bool, bool) {
	group, ok := a.Part2[questionID]
	if !ok {
		return false, false
	}
	v, ok := group[subID]
	return v, ok
}

// ShortAnswer returns the text given for a Part 3 question.
func (a StudentAnswers) ShortAnswer(questionID string) (string, bool) {
	v, ok := a.Part3[questionID]
	return v, ok
}

// Empty reports whether no answer at all was given.
func (a StudentAnswers) Empty() bool {
	if len(a.Part1) > 0 || len(a.Part3) > 0 {
		return false
	}
	for _, g := range a.Part2 {
		if len(g) > 0 {
			return false
		}
	}
	return true
}
