package questions

import (
	"context"
	"errors"

	"github.com/exam-simulator/backend/internal/models"
)

// SaveAnswers appends answers to question id.
func (s *Service) SaveAnswers(ctx context.Context, questionID int64, answers []models.Answer) ([]models.Answer, error) {
	if err := validateAnswers(answers); err != nil {
		return nil, err
	}

	var saved []models.Answer
	err := s.repo.InTx(ctx, func(tx Repository) error {
		q, err := getQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}
		q.Answers = cloneAnswers(answers)
		if err := insertAnswers(ctx, tx, q); err != nil {
			return err
		}
		saved = q.Answers
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ReplaceAnswers swaps the whole answer collection of question id.
func (s *Service) ReplaceAnswers(ctx context.Context, questionID int64, answers []models.Answer) (*models.Question, error) {
	if err := validateAnswers(answers); err != nil {
		return nil, err
	}

	var updated *models.Question
	err := s.repo.InTx(ctx, func(tx Repository) error {
		q, err := getQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}
		if err := tx.DeleteAnswers(ctx, questionID); err != nil {
			return err
		}
		q.Answers = cloneAnswers(answers)
		if err := insertAnswers(ctx, tx, q); err != nil {
			return err
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAnswers empties the answer collection; the question itself stays.
func (s *Service) DeleteAnswers(ctx context.Context, questionID int64) error {
	return s.repo.InTx(ctx, func(tx Repository) error {
		if _, err := getQuestion(ctx, tx, questionID); err != nil {
			return err
		}
		return tx.DeleteAnswers(ctx, questionID)
	})
}

func (s *Service) UpdateAnswer(ctx context.Context, id int64, a models.Answer) (*models.Answer, error) {
	if err := validateAnswers([]models.Answer{a}); err != nil {
		return nil, err
	}

	var updated *models.Answer
	err := s.repo.InTx(ctx, func(tx Repository) error {
		var err error
		updated, err = updateAnswer(ctx, tx, id, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateAnswers overwrites several answers at once; every entry needs an id
// and one unknown id rolls back the batch.
func (s *Service) UpdateAnswers(ctx context.Context, answers []models.Answer) ([]models.Answer, error) {
	for _, a := range answers {
		if a.ID == 0 {
			return nil, validationErrorf("answer id is required for update")
		}
	}
	if err := validateAnswers(answers); err != nil {
		return nil, err
	}

	updated := make([]models.Answer, 0, len(answers))
	err := s.repo.InTx(ctx, func(tx Repository) error {
		for _, a := range answers {
			u, err := updateAnswer(ctx, tx, a.ID, a)
			if err != nil {
				return err
			}
			updated = append(updated, *u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func updateAnswer(ctx context.Context, tx Repository, id int64, a models.Answer) (*models.Answer, error) {
	current, err := tx.GetAnswer(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &EntityNotFoundError{Entity: "Answer", ID: id}
	}
	if err != nil {
		return nil, err
	}

	// Read the owner first: a failed UPDATE aborts the transaction.
	owner, err := getQuestion(ctx, tx, current.QuestionID)
	if err != nil {
		return nil, err
	}

	current.Option = a.Option
	current.Correct = a.Correct
	if err := tx.UpdateAnswer(ctx, *current); err != nil {
		if errors.Is(err, ErrUniqueViolation) {
			return nil, &DuplicateAnswerError{Option: a.Option, Question: owner.Description, Err: err}
		}
		return nil, err
	}
	return current, nil
}
