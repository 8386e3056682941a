package questions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/exam-simulator/backend/internal/models"
	"github.com/lib/pq"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violated")
)

// Repository is the persistence contract the service and reconciler depend on.
type Repository interface {
	ListQuestions(ctx context.Context) ([]models.Question, error)
	QuestionsByModule(ctx context.Context, module string) ([]models.Question, error)
	RandomQuestions(ctx context.Context) ([]models.Question, error)
	RandomQuestionsByModule(ctx context.Context, module string, limit int) ([]models.Question, error)
	ModuleExists(ctx context.Context, module string) (bool, error)
	ListModules(ctx context.Context) ([]models.ModuleSummary, error)

	GetQuestion(ctx context.Context, id int64) (*models.Question, error)
	InsertQuestion(ctx context.Context, q *models.Question) error
	InsertQuestionIfAbsent(ctx context.Context, description, module string) (int64, bool, error)
	UpdateQuestion(ctx context.Context, q models.Question) error
	DeleteQuestion(ctx context.Context, id int64) (bool, error)
	DeleteQuestions(ctx context.Context, ids []int64) (int64, error)

	GetAnswer(ctx context.Context, id int64) (*models.Answer, error)
	InsertAnswer(ctx context.Context, a *models.Answer) error
	UpdateAnswer(ctx context.Context, a models.Answer) error
	DeleteAnswers(ctx context.Context, questionID int64) error

	// InTx runs fn against a repository bound to a single transaction. Nested
	// calls reuse the outer transaction.
	InTx(ctx context.Context, fn func(Repository) error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db   *sql.DB
	q    querier
	inTx bool
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ── Reading Questions ───────────────────────────────────

const questionCols = `id, description, COALESCE(module_name, '')`

func (s *Store) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return s.queryQuestions(ctx, "list questions",
		`SELECT `+questionCols+` FROM questions ORDER BY id`)
}

func (s *Store) QuestionsByModule(ctx context.Context, module string) ([]models.Question, error) {
	return s.queryQuestions(ctx, "questions by module",
		`SELECT `+questionCols+` FROM questions WHERE module_name = $1 ORDER BY id`, module)
}

// RandomQuestions returns every question in the order chosen by the
// database's RANDOM(); no uniformity guarantee is made beyond that.
func (s *Store) RandomQuestions(ctx context.Context) ([]models.Question, error) {
	return s.queryQuestions(ctx, "random questions",
		`SELECT `+questionCols+` FROM questions ORDER BY RANDOM()`)
}

func (s *Store) RandomQuestionsByModule(ctx context.Context, module string, limit int) ([]models.Question, error) {
	return s.queryQuestions(ctx, "random questions by module",
		`SELECT `+questionCols+` FROM questions WHERE module_name = $1 ORDER BY RANDOM() LIMIT $2`,
		module, limit)
}

func (s *Store) ModuleExists(ctx context.Context, module string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM questions WHERE module_name = $1)`,
		module,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check module: %w", err)
	}
	return exists, nil
}

func (s *Store) ListModules(ctx context.Context) ([]models.ModuleSummary, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT module_name, COUNT(*) FROM questions
		 WHERE module_name IS NOT NULL AND module_name <> ''
		 GROUP BY module_name ORDER BY module_name`)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	modules := []models.ModuleSummary{}
	for rows.Next() {
		var m models.ModuleSummary
		if err := rows.Scan(&m.Module, &m.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	var q models.Question
	err := s.q.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.Description, &q.ModuleName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	list := []models.Question{q}
	if err := s.attachAnswers(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) queryQuestions(ctx context.Context, op, query string, args ...any) ([]models.Question, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Description, &q.ModuleName); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// A transaction holds a single connection; free it for the answers query.
	rows.Close()

	if err := s.attachAnswers(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// attachAnswers loads the answers of all given questions in one query and
// keeps the question order untouched.
func (s *Store) attachAnswers(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	index := make(map[int64]int, len(questions))
	ids := make([]int64, len(questions))
	for i := range questions {
		questions[i].Answers = []models.Answer{}
		index[questions[i].ID] = i
		ids[i] = questions[i].ID
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT id, question_id, option, correct FROM answers
		 WHERE question_id = ANY($1) ORDER BY id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("get answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Option, &a.Correct); err != nil {
			return fmt.Errorf("scan answer: %w", err)
		}
		if i, ok := index[a.QuestionID]; ok {
			questions[i].Answers = append(questions[i].Answers, a)
		}
	}
	return rows.Err()
}

// ── Writing Questions ───────────────────────────────────

func (s *Store) InsertQuestion(ctx context.Context, q *models.Question) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO questions (description, module_name) VALUES ($1, $2) RETURNING id`,
		q.Description, nullString(q.ModuleName),
	).Scan(&q.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// InsertQuestionIfAbsent inserts a question with no answers unless its
// description is already stored. The boolean is false when nothing was
// inserted.
func (s *Store) InsertQuestionIfAbsent(ctx context.Context, description, module string) (int64, bool, error) {
	var id int64
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO questions (description, module_name) VALUES ($1, $2)
		 ON CONFLICT (description) DO NOTHING
		 RETURNING id`,
		description, nullString(module),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert question: %w", err)
	}
	return id, true, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q models.Question) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE questions SET description = $1, module_name = $2 WHERE id = $3`,
		q.Description, nullString(q.ModuleName), q.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("update question: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	return n > 0, nil
}

func (s *Store) DeleteQuestions(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM questions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}
	return res.RowsAffected()
}

// ── Answers ─────────────────────────────────────────────

func (s *Store) GetAnswer(ctx context.Context, id int64) (*models.Answer, error) {
	var a models.Answer
	err := s.q.QueryRowContext(ctx,
		`SELECT id, question_id, option, correct FROM answers WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.QuestionID, &a.Option, &a.Correct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get answer: %w", err)
	}
	return &a, nil
}

func (s *Store) InsertAnswer(ctx context.Context, a *models.Answer) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO answers (option, correct, question_id) VALUES ($1, $2, $3) RETURNING id`,
		a.Option, a.Correct, a.QuestionID,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *Store) UpdateAnswer(ctx context.Context, a models.Answer) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE answers SET option = $1, correct = $2 WHERE id = $3`,
		a.Option, a.Correct, a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
		}
		return fmt.Errorf("update answer: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteAnswers(ctx context.Context, questionID int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM answers WHERE question_id = $1`, questionID)
	if err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	return nil
}

// ── Helpers ─────────────────────────────────────────────

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Repository = (*Store)(nil)
