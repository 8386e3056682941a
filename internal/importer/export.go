package importer

import (
	"bytes"
	"fmt"

	"github.com/exam-simulator/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Export renders questions in the import document format.
func Export(questions []models.Question) ([]byte, error) {
	doc := Document{Questions: make([]DocumentQuestion, 0, len(questions))}
	for _, q := range questions {
		dq := DocumentQuestion{
			Description: q.Description,
			Answers:     make([]DocumentAnswer, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			dq.Answers = append(dq.Answers, DocumentAnswer{Option: a.Option, Correct: a.Correct})
		}
		doc.Questions = append(doc.Questions, dq)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	return buf.Bytes(), nil
}
