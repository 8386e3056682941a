package questions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/exam-simulator/backend/internal/importer"
	"github.com/exam-simulator/backend/internal/models"
)

type Service struct {
	repo             Repository
	questionFilePath string
}

// NewService builds the question service. questionFilePath is a format
// template with a single %s that receives the import file name.
func NewService(repo Repository, questionFilePath string) *Service {
	return &Service{repo: repo, questionFilePath: questionFilePath}
}

// ── Retrieval ───────────────────────────────────────────

func (s *Service) RandomQuestions(ctx context.Context) ([]models.Question, error) {
	return s.repo.RandomQuestions(ctx)
}

// RandomQuestionsByModule returns up to n questions of module in random
// order. An unknown module is reported before the count is looked at.
func (s *Service) RandomQuestionsByModule(ctx context.Context, module string, n int) ([]models.Question, error) {
	if strings.TrimSpace(module) == "" {
		return nil, &ModuleNotFoundError{Module: module}
	}

	exists, err := s.repo.ModuleExists(ctx, module)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &ModuleNotFoundError{Module: module}
	}

	if n < 1 {
		return nil, validationErrorf("count must be at least 1, got %d", n)
	}

	return s.repo.RandomQuestionsByModule(ctx, module, n)
}

// QuestionsByStructure builds an exam from several modules, keeping the
// order of the request list. Any failing entry fails the whole call.
func (s *Service) QuestionsByStructure(ctx context.Context, structure []models.StructureRequest) ([]models.Question, error) {
	exam := []models.Question{}
	for _, part := range structure {
		questions, err := s.RandomQuestionsByModule(ctx, part.Module, part.Count)
		if err != nil {
			return nil, err
		}
		exam = append(exam, questions...)
	}
	return exam, nil
}

func (s *Service) ListModules(ctx context.Context) ([]models.ModuleSummary, error) {
	return s.repo.ListModules(ctx)
}

// ── Import / Export ─────────────────────────────────────

func (s *Service) ImportLocalFile(ctx context.Context, fileName, module string) (models.ImportResult, error) {
	if err := validateFileName(fileName); err != nil {
		return models.ImportResult{}, err
	}

	path := fmt.Sprintf(s.questionFilePath, fileName)
	log.Printf("[importer] importing %s into module %q", path, module)

	parsed, err := importer.LoadFile(path, module)
	if err != nil {
		return models.ImportResult{}, err
	}
	return Reconcile(ctx, s.repo, parsed)
}

func (s *Service) ImportUpload(ctx context.Context, r io.Reader, name, module string) (models.ImportResult, error) {
	parsed, err := importer.LoadUpload(r, name, module)
	if err != nil {
		return models.ImportResult{}, err
	}
	return Reconcile(ctx, s.repo, parsed)
}

// ExportQuestions renders the questions of module, or every question when
// module is empty, in the import document format.
func (s *Service) ExportQuestions(ctx context.Context, module string) ([]byte, error) {
	questions, err := s.exportSet(ctx, module)
	if err != nil {
		return nil, err
	}
	return importer.Export(questions)
}

func (s *Service) exportSet(ctx context.Context, module string) ([]models.Question, error) {
	if module == "" {
		return s.repo.ListQuestions(ctx)
	}

	exists, err := s.repo.ModuleExists(ctx, module)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &ModuleNotFoundError{Module: module}
	}
	return s.repo.QuestionsByModule(ctx, module)
}

func validateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return validationErrorf("file name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return validationErrorf("file name %q must not contain path components", name)
	}
	return nil
}

// ── Questions ───────────────────────────────────────────

func (s *Service) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return s.repo.ListQuestions(ctx)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	return getQuestion(ctx, s.repo, id)
}

func (s *Service) AnswersForQuestion(ctx context.Context, id int64) ([]models.Answer, error) {
	q, err := getQuestion(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return q.Answers, nil
}

// SaveQuestions stores new questions with their answers in one transaction.
func (s *Service) SaveQuestions(ctx context.Context, questions []models.Question) ([]models.Question, error) {
	for _, q := range questions {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
	}

	saved := make([]models.Question, 0, len(questions))
	err := s.repo.InTx(ctx, func(tx Repository) error {
		for _, q := range questions {
			q.ID = 0
			answers := q.Answers
			if err := tx.InsertQuestion(ctx, &q); err != nil {
				if errors.Is(err, ErrUniqueViolation) {
					return &DuplicateQuestionError{Description: q.Description}
				}
				return err
			}
			q.Answers = cloneAnswers(answers)
			if err := insertAnswers(ctx, tx, &q); err != nil {
				return err
			}
			saved = append(saved, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// UpdateQuestion replaces the description, module and answers of question id.
func (s *Service) UpdateQuestion(ctx context.Context, id int64, q models.Question) (*models.Question, error) {
	if err := validateQuestion(q); err != nil {
		return nil, err
	}

	var updated *models.Question
	err := s.repo.InTx(ctx, func(tx Repository) error {
		q.ID = id
		if err := replaceQuestion(ctx, tx, q); err != nil {
			return err
		}
		var err error
		updated, err = getQuestion(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateQuestions applies UpdateQuestion to every entry. A single unknown id
// aborts the batch and nothing is written.
func (s *Service) UpdateQuestions(ctx context.Context, questions []models.Question) ([]models.Question, error) {
	for _, q := range questions {
		if q.ID == 0 {
			return nil, validationErrorf("question id is required for update")
		}
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
	}

	updated := make([]models.Question, 0, len(questions))
	err := s.repo.InTx(ctx, func(tx Repository) error {
		for _, q := range questions {
			if err := replaceQuestion(ctx, tx, q); err != nil {
				return err
			}
			stored, err := getQuestion(ctx, tx, q.ID)
			if err != nil {
				return err
			}
			updated = append(updated, *stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PatchQuestion merges patch into question id. Blank text fields and an empty
// answer list leave the stored values untouched.
func (s *Service) PatchQuestion(ctx context.Context, id int64, patch models.Question) (*models.Question, error) {
	if err := validateAnswers(patch.Answers); err != nil {
		return nil, err
	}

	var patched *models.Question
	err := s.repo.InTx(ctx, func(tx Repository) error {
		var err error
		patched, err = patchQuestion(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return patched, nil
}

func (s *Service) PatchQuestions(ctx context.Context, patches []models.Question) ([]models.Question, error) {
	for _, p := range patches {
		if p.ID == 0 {
			return nil, validationErrorf("question id is required for patch")
		}
		if err := validateAnswers(p.Answers); err != nil {
			return nil, err
		}
	}

	patched := make([]models.Question, 0, len(patches))
	err := s.repo.InTx(ctx, func(tx Repository) error {
		for _, p := range patches {
			q, err := patchQuestion(ctx, tx, p.ID, p)
			if err != nil {
				return err
			}
			patched = append(patched, *q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patched, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteQuestion(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return &EntityNotFoundError{Entity: "Question", ID: id}
	}
	return nil
}

// DeleteQuestions removes every listed question. Unknown ids are skipped.
func (s *Service) DeleteQuestions(ctx context.Context, ids []int64) error {
	n, err := s.repo.DeleteQuestions(ctx, ids)
	if err != nil {
		return err
	}
	if n < int64(len(ids)) {
		log.Printf("[questions] deleted %d of %d requested questions", n, len(ids))
	}
	return nil
}

// ── Helpers ─────────────────────────────────────────────

func getQuestion(ctx context.Context, repo Repository, id int64) (*models.Question, error) {
	q, err := repo.GetQuestion(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, &EntityNotFoundError{Entity: "Question", ID: id}
	}
	return q, err
}

func replaceQuestion(ctx context.Context, tx Repository, q models.Question) error {
	if err := tx.UpdateQuestion(ctx, q); err != nil {
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return &EntityNotFoundError{Entity: "Question", ID: q.ID}
		case errors.Is(err, ErrUniqueViolation):
			return &DuplicateQuestionError{Description: q.Description}
		}
		return err
	}
	if err := tx.DeleteAnswers(ctx, q.ID); err != nil {
		return err
	}
	q.Answers = cloneAnswers(q.Answers)
	return insertAnswers(ctx, tx, &q)
}

func patchQuestion(ctx context.Context, tx Repository, id int64, patch models.Question) (*models.Question, error) {
	current, err := getQuestion(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if strings.TrimSpace(patch.Description) != "" {
		merged.Description = patch.Description
	}
	if strings.TrimSpace(patch.ModuleName) != "" {
		merged.ModuleName = patch.ModuleName
	}

	if len(patch.Answers) == 0 {
		if err := tx.UpdateQuestion(ctx, merged); err != nil {
			if errors.Is(err, ErrUniqueViolation) {
				return nil, &DuplicateQuestionError{Description: merged.Description}
			}
			return nil, err
		}
	} else {
		merged.Answers = patch.Answers
		if err := replaceQuestion(ctx, tx, merged); err != nil {
			return nil, err
		}
	}
	return getQuestion(ctx, tx, id)
}

// insertAnswers saves q.Answers against q.ID, filling in the new ids.
func insertAnswers(ctx context.Context, tx Repository, q *models.Question) error {
	for i := range q.Answers {
		a := &q.Answers[i]
		a.ID = 0
		a.QuestionID = q.ID
		if err := tx.InsertAnswer(ctx, a); err != nil {
			if errors.Is(err, ErrUniqueViolation) {
				return &DuplicateAnswerError{Option: a.Option, Question: q.Description, Err: err}
			}
			return err
		}
	}
	return nil
}

// cloneAnswers detaches an answer slice from the caller's backing array so
// that assigned ids do not leak into request values.
func cloneAnswers(answers []models.Answer) []models.Answer {
	return append([]models.Answer{}, answers...)
}

func validateQuestion(q models.Question) error {
	if strings.TrimSpace(q.Description) == "" {
		return validationErrorf("question description must not be blank")
	}
	return validateAnswers(q.Answers)
}

func validateAnswers(answers []models.Answer) error {
	for i, a := range answers {
		if strings.TrimSpace(a.Option) == "" {
			return validationErrorf("answer %d: option must not be blank", i+1)
		}
	}
	return nil
}
