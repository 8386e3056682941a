package importer

import (
	"log"

	"github.com/exam-simulator/backend/internal/models"
)

// StructuralScore holds the structural checks run on every imported
// question. A failing check is logged but does not reject the question.
type StructuralScore struct {
	EnoughOptions    bool
	HasCorrectAnswer bool
	DistinctOptions  bool
}

func (s StructuralScore) OK() bool {
	return s.EnoughOptions && s.HasCorrectAnswer && s.DistinctOptions
}

// ComputeStructuralScore evaluates a single question.
func ComputeStructuralScore(q models.Question) StructuralScore {
	score := StructuralScore{
		EnoughOptions:   len(q.Answers) >= 2,
		DistinctOptions: true,
	}

	seen := make(map[string]bool, len(q.Answers))
	for _, a := range q.Answers {
		if a.Correct {
			score.HasCorrectAnswer = true
		}
		if seen[a.Option] {
			score.DistinctOptions = false
		}
		seen[a.Option] = true
	}
	return score
}

// reportStructure logs questions that fail a structural check and returns
// how many did.
func reportStructure(source string, questions []models.Question) int {
	flagged := 0
	for i, q := range questions {
		s := ComputeStructuralScore(q)
		if s.OK() {
			continue
		}
		flagged++
		log.Printf("[importer] %s question %d %q: options=%d correct=%v distinct=%v",
			source, i+1, q.Description, len(q.Answers), s.HasCorrectAnswer, s.DistinctOptions)
	}
	return flagged
}
