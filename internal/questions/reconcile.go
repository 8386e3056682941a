package questions

import (
	"context"
	"errors"
	"log"

	"github.com/exam-simulator/backend/internal/models"
)

var errNilQuestions = errors.New("questions: nil question list")

// Reconcile persists freshly parsed questions in two passes inside a single
// transaction. Pass one stores every question with no answers and fails on
// the first description that already exists. Pass two re-reads the stored
// questions, matches each parsed question by description and saves its
// answers against the stored id.
func Reconcile(ctx context.Context, repo Repository, parsed []models.Question) (models.ImportResult, error) {
	if parsed == nil {
		return models.ImportResult{}, errNilQuestions
	}
	if len(parsed) == 0 {
		return models.ImportResult{}, nil
	}

	result := models.ImportResult{Module: parsed[0].ModuleName}

	err := repo.InTx(ctx, func(tx Repository) error {
		for _, q := range parsed {
			_, inserted, err := tx.InsertQuestionIfAbsent(ctx, q.Description, q.ModuleName)
			if err != nil {
				return err
			}
			if !inserted {
				log.Printf("[reconcile] question %q is already stored", q.Description)
				return &DuplicateQuestionError{Description: q.Description}
			}
			result.QuestionsSaved++
		}

		stored, err := tx.ListQuestions(ctx)
		if err != nil {
			return err
		}

		linked, err := linkAnswers(parsed, stored)
		if err != nil {
			return err
		}

		for _, q := range linked {
			for i := range q.Answers {
				if err := tx.InsertAnswer(ctx, &q.Answers[i]); err != nil {
					if errors.Is(err, ErrUniqueViolation) {
						return &DuplicateAnswerError{Option: q.Answers[i].Option, Question: q.Description, Err: err}
					}
					return err
				}
				result.AnswersSaved++
			}
		}
		return nil
	})
	if err != nil {
		return models.ImportResult{}, err
	}

	log.Printf("[reconcile] imported %d questions and %d answers (module=%q)",
		result.QuestionsSaved, result.AnswersSaved, result.Module)
	return result, nil
}

// linkAnswers pairs each parsed question with its stored counterpart, matching
// on exact description and taking the first match. The returned questions
// carry the stored id and the parsed answers pointed at that id.
func linkAnswers(parsed, stored []models.Question) ([]models.Question, error) {
	if parsed == nil || stored == nil {
		return nil, errNilQuestions
	}

	ids := make(map[string]int64, len(stored))
	for _, s := range stored {
		if _, seen := ids[s.Description]; !seen {
			ids[s.Description] = s.ID
		}
	}

	linked := make([]models.Question, 0, len(parsed))
	for _, p := range parsed {
		id, ok := ids[p.Description]
		if !ok {
			log.Printf("[reconcile] parsed question %q has no stored counterpart", p.Description)
			return nil, &QuestionNotPersistedError{Description: p.Description}
		}

		q := models.Question{
			ID:          id,
			Description: p.Description,
			ModuleName:  p.ModuleName,
			Answers:     make([]models.Answer, len(p.Answers)),
		}
		for i, a := range p.Answers {
			q.Answers[i] = models.Answer{QuestionID: id, Option: a.Option, Correct: a.Correct}
		}
		linked = append(linked, q)
	}
	return linked, nil
}
