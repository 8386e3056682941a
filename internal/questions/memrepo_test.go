package questions

import (
	"context"
	"errors"
	"math/rand"
	"sort"

	"github.com/exam-simulator/backend/internal/models"
)

// memRepo is an in-memory Repository. InTx restores the previous state when
// fn fails, the way a rolled back transaction would. Ids keep increasing
// across rollbacks like Postgres sequences do.
type memRepo struct {
	questions []models.Question // answers are kept separately
	answers   []models.Answer
	nextQ     int64
	nextA     int64
	inTx      bool

	// insertAnswerErr, when set, is returned by InsertAnswer once
	// insertAnswerAfter answers have been stored.
	insertAnswerErr   error
	insertAnswerAfter int
	answersInserted   int
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{nextQ: 1000, nextA: 1000}
}

// seed stores q and its answers directly and returns it with ids filled in.
func (m *memRepo) seed(q models.Question) models.Question {
	q.ID = m.nextQ
	m.nextQ++
	answers := q.Answers
	q.Answers = nil
	m.questions = append(m.questions, q)

	q.Answers = make([]models.Answer, len(answers))
	for i, a := range answers {
		a.ID = m.nextA
		a.QuestionID = q.ID
		m.nextA++
		m.answers = append(m.answers, a)
		q.Answers[i] = a
	}
	return q
}

func (m *memRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	if m.inTx {
		return fn(m)
	}

	questions := append([]models.Question(nil), m.questions...)
	answers := append([]models.Answer(nil), m.answers...)

	m.inTx = true
	err := fn(m)
	m.inTx = false

	if err != nil {
		m.questions = questions
		m.answers = answers
	}
	return err
}

func (m *memRepo) withAnswers(q models.Question) models.Question {
	q.Answers = []models.Answer{}
	for _, a := range m.answers {
		if a.QuestionID == q.ID {
			q.Answers = append(q.Answers, a)
		}
	}
	sort.Slice(q.Answers, func(i, j int) bool { return q.Answers[i].ID < q.Answers[j].ID })
	return q
}

func (m *memRepo) filter(keep func(models.Question) bool) []models.Question {
	out := []models.Question{}
	for _, q := range m.questions {
		if keep(q) {
			out = append(out, m.withAnswers(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memRepo) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return m.filter(func(models.Question) bool { return true }), nil
}

func (m *memRepo) QuestionsByModule(ctx context.Context, module string) ([]models.Question, error) {
	return m.filter(func(q models.Question) bool { return q.ModuleName == module }), nil
}

func (m *memRepo) RandomQuestions(ctx context.Context) ([]models.Question, error) {
	out, _ := m.ListQuestions(ctx)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

func (m *memRepo) RandomQuestionsByModule(ctx context.Context, module string, limit int) ([]models.Question, error) {
	out, _ := m.QuestionsByModule(ctx, module)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) ModuleExists(ctx context.Context, module string) (bool, error) {
	for _, q := range m.questions {
		if q.ModuleName == module {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ListModules(ctx context.Context) ([]models.ModuleSummary, error) {
	counts := map[string]int{}
	for _, q := range m.questions {
		if q.ModuleName != "" {
			counts[q.ModuleName]++
		}
	}
	out := []models.ModuleSummary{}
	for module, n := range counts {
		out = append(out, models.ModuleSummary{Module: module, QuestionCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out, nil
}

func (m *memRepo) indexOf(id int64) int {
	for i, q := range m.questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func (m *memRepo) descriptionTaken(description string, except int64) bool {
	for _, q := range m.questions {
		if q.Description == description && q.ID != except {
			return true
		}
	}
	return false
}

func (m *memRepo) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrRecordNotFound
	}
	q := m.withAnswers(m.questions[i])
	return &q, nil
}

func (m *memRepo) InsertQuestion(ctx context.Context, q *models.Question) error {
	if m.descriptionTaken(q.Description, 0) {
		return ErrUniqueViolation
	}
	q.ID = m.nextQ
	m.nextQ++
	m.questions = append(m.questions, models.Question{ID: q.ID, Description: q.Description, ModuleName: q.ModuleName})
	return nil
}

func (m *memRepo) InsertQuestionIfAbsent(ctx context.Context, description, module string) (int64, bool, error) {
	if m.descriptionTaken(description, 0) {
		return 0, false, nil
	}
	q := models.Question{Description: description, ModuleName: module}
	if err := m.InsertQuestion(ctx, &q); err != nil {
		return 0, false, err
	}
	return q.ID, true, nil
}

func (m *memRepo) UpdateQuestion(ctx context.Context, q models.Question) error {
	i := m.indexOf(q.ID)
	if i < 0 {
		return ErrRecordNotFound
	}
	if m.descriptionTaken(q.Description, q.ID) {
		return ErrUniqueViolation
	}
	m.questions[i].Description = q.Description
	m.questions[i].ModuleName = q.ModuleName
	return nil
}

func (m *memRepo) DeleteQuestion(ctx context.Context, id int64) (bool, error) {
	i := m.indexOf(id)
	if i < 0 {
		return false, nil
	}
	m.questions = append(m.questions[:i], m.questions[i+1:]...)
	m.DeleteAnswers(ctx, id)
	return true, nil
}

func (m *memRepo) DeleteQuestions(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if ok, _ := m.DeleteQuestion(ctx, id); ok {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) GetAnswer(ctx context.Context, id int64) (*models.Answer, error) {
	for _, a := range m.answers {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (m *memRepo) optionTaken(questionID int64, option string, except int64) bool {
	for _, a := range m.answers {
		if a.QuestionID == questionID && a.Option == option && a.ID != except {
			return true
		}
	}
	return false
}

func (m *memRepo) InsertAnswer(ctx context.Context, a *models.Answer) error {
	if m.insertAnswerErr != nil && m.answersInserted >= m.insertAnswerAfter {
		return m.insertAnswerErr
	}
	if m.indexOf(a.QuestionID) < 0 {
		return errors.New("answers_question_id_fkey violated")
	}
	if m.optionTaken(a.QuestionID, a.Option, 0) {
		return ErrUniqueViolation
	}
	a.ID = m.nextA
	m.nextA++
	m.answers = append(m.answers, *a)
	m.answersInserted++
	return nil
}

func (m *memRepo) UpdateAnswer(ctx context.Context, a models.Answer) error {
	for i := range m.answers {
		if m.answers[i].ID != a.ID {
			continue
		}
		if m.optionTaken(m.answers[i].QuestionID, a.Option, a.ID) {
			return ErrUniqueViolation
		}
		m.answers[i].Option = a.Option
		m.answers[i].Correct = a.Correct
		return nil
	}
	return ErrRecordNotFound
}

func (m *memRepo) DeleteAnswers(ctx context.Context, questionID int64) error {
	kept := m.answers[:0]
	for _, a := range m.answers {
		if a.QuestionID != questionID {
			kept = append(kept, a)
		}
	}
	m.answers = kept
	return nil
}
