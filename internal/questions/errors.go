package questions

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors below match one of these with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInternalInvariant = errors.New("internal invariant violated")
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string        { return e.Msg }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type EntityNotFoundError struct {
	Entity string
	ID     int64
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d doesn't exist", e.Entity, e.ID)
}

func (e *EntityNotFoundError) Is(target error) bool { return target == ErrNotFound }

type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no question was found for the module %q", e.Module)
}

func (e *ModuleNotFoundError) Is(target error) bool { return target == ErrNotFound }

type DuplicateQuestionError struct {
	Description string
}

func (e *DuplicateQuestionError) Error() string {
	return fmt.Sprintf("question %q is already persisted", e.Description)
}

func (e *DuplicateQuestionError) Is(target error) bool { return target == ErrConflict }

type DuplicateAnswerError struct {
	Option   string
	Question string
	Err      error
}

func (e *DuplicateAnswerError) Error() string {
	return fmt.Sprintf("answer %q for question %q is already persisted", e.Option, e.Question)
}

func (e *DuplicateAnswerError) Is(target error) bool { return target == ErrConflict }
func (e *DuplicateAnswerError) Unwrap() error        { return e.Err }

// QuestionNotPersistedError means a question saved earlier in the same import
// could not be found again. It indicates a bug, not bad input.
type QuestionNotPersistedError struct {
	Description string
}

func (e *QuestionNotPersistedError) Error() string {
	return fmt.Sprintf("question %q from file is not stored in the database", e.Description)
}

func (e *QuestionNotPersistedError) Is(target error) bool { return target == ErrInternalInvariant }
