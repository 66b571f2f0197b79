package model

// ResultsExport is the top-level JSON structure for result export.
type ResultsExport struct {
	ExamID     string         `json:"exam_id,omitempty"`
	ExportedAt int64          `json:"exported_at"`
	MaxScore   float64        `json:"max_score"`
	Exams      []ExamSummary  `json:"exams"`
	Results    []StoredResult `json:"results"`
	Stats      []ExamStats    `json:"stats"`
}

// ExamStats aggregates stored scores for one exam.
type ExamStats struct {
	ExamID      string  `json:"exam_id"`
	Submissions int     `json:"submissions"`
	Average     float64 `json:"average"`
	Highest     float64 `json:"highest"`
	Lowest      float64 `json:"lowest"`
}

// ComputeStats aggregates results per exam, in order of first appearance.
func ComputeStats(results []StoredResult) []ExamStats {
	index := make(map[string]int)
	var stats []ExamStats
	sums := make(map[string]float64)
	for _, r := range results {
		i, ok := index[r.ExamID]
		if !ok {
			i = len(stats)
			index[r.ExamID] = i
			stats = append(stats, ExamStats{
				ExamID:  r.ExamID,
				Highest: r.Result.Score,
				Lowest:  r.Result.Score,
			})
		}
		st := &stats[i]
		st.Submissions++
		sums[r.ExamID] += r.Result.Score
		if r.Result.Score > st.Highest {
			st.Highest = r.Result.Score
		}
		if r.Result.Score < st.Lowest {
			st.Lowest = r.Result.Score
		}
	}
	for i := range stats {
		stats[i].Average = sums[stats[i].ExamID] / float64(stats[i].Submissions)
	}
	return stats
}
