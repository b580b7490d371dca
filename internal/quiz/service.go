package quiz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/assessor"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Change event types.
const (
	EventTestCreated     = "test.created"
	EventTestUpdated     = "test.updated"
	EventTestDeleted     = "test.deleted"
	EventQuestionCreated = "question.created"
	EventQuestionUpdated = "question.updated"
	EventQuestionDeleted = "question.deleted"
)

// Notifier is told about every committed change.
type Notifier interface {
	Notify(ctx context.Context, typ, owner, key, testID string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, string, string) {}

type Option func(*Service)

func WithNotifier(n Notifier) Option        { return func(s *Service) { s.notify = n } }
func WithLogger(l *zap.Logger) Option       { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithIDs(next func() string) Option     { return func(s *Service) { s.newID = next } }

// Service implements the quiz operations on top of a Store and an Assessor.
type Service struct {
	store    Store
	assessor assessor.Assessor
	notify   Notifier
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
}

func NewService(store Store, a assessor.Assessor, opts ...Option) *Service {
	s := &Service{
		store:    store,
		assessor: a,
		notify:   nopNotifier{},
		log:      zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
		validate: newValidator(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) stamp() time.Time { return s.now().UTC().Truncate(time.Microsecond) }

// ---- tests ----

func (s *Service) CreateTest(ctx context.Context, owner string, in NewTest) (Test, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return Test{}, invalid("test name is required")
	}
	if err := check(s.validate, in, "invalid test"); err != nil {
		return Test{}, err
	}
	now := s.stamp()
	t := Test{
		ID:          s.newID(),
		Owner:       owner,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTest(ctx, t); err != nil {
		return Test{}, err
	}
	s.log.Info("test created", zap.String("owner", owner), zap.String("test_id", t.ID))
	s.notify.Notify(ctx, EventTestCreated, owner, t.ID, t.ID)
	return t, nil
}

// ListTests returns the owner's tests, oldest first.
func (s *Service) ListTests(ctx context.Context, owner string) ([]Test, error) {
	return s.store.ListTests(ctx, owner)
}

func (s *Service) GetTest(ctx context.Context, owner, id string) (Test, error) {
	return s.store.GetTest(ctx, owner, id)
}

func (s *Service) UpdateTest(ctx context.Context, owner, id string, p TestPatch) (Test, error) {
	if err := check(s.validate, p, "invalid test"); err != nil {
		return Test{}, err
	}
	t, err := s.store.GetTest(ctx, owner, id)
	if err != nil {
		return Test{}, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return Test{}, invalid("test name is required")
		}
		t.Name = name
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	t.UpdatedAt = s.stamp()
	if err := s.store.UpdateTest(ctx, t); err != nil {
		return Test{}, err
	}
	s.notify.Notify(ctx, EventTestUpdated, owner, t.ID, t.ID)
	return t, nil
}

func (s *Service) DeleteTest(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteTest(ctx, owner, id); err != nil {
		return err
	}
	s.log.Info("test deleted", zap.String("owner", owner), zap.String("test_id", id))
	s.notify.Notify(ctx, EventTestDeleted, owner, id, id)
	return nil
}

func (s *Service) ExportTest(ctx context.Context, owner, id string) (TestExport, error) {
	t, err := s.store.GetTest(ctx, owner, id)
	if err != nil {
		return TestExport{}, err
	}
	qs, err := s.store.ListQuestions(ctx, owner, id)
	if err != nil {
		return TestExport{}, err
	}
	return TestExport{Test: t, Questions: qs}, nil
}

// ---- questions ----

// ListQuestions returns the questions of one of the owner's tests, oldest first.
func (s *Service) ListQuestions(ctx context.Context, owner, testID string) ([]Question, error) {
	if _, err := s.store.GetTest(ctx, owner, testID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(ctx, owner, testID)
}

func (s *Service) GetQuestion(ctx context.Context, owner, id string) (Question, error) {
	return s.store.GetQuestion(ctx, owner, id)
}

func (s *Service) AddQuestion(ctx context.Context, owner, testID string, in QuestionInput) (Question, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.CorrectAnswer = strings.TrimSpace(in.CorrectAnswer)
	in.Explanation = strings.TrimSpace(in.Explanation)
	if err := check(s.validate, in, "invalid question"); err != nil {
		return Question{}, err
	}
	if _, err := s.store.GetTest(ctx, owner, testID); err != nil {
		return Question{}, err
	}
	return s.createQuestion(ctx, owner, testID, in)
}

// GenerateQuestion asks the assessor for a new question about the test and
// stores it. Nothing is stored when generation fails.
func (s *Service) GenerateQuestion(ctx context.Context, owner, testID string) (Question, error) {
	t, err := s.store.GetTest(ctx, owner, testID)
	if err != nil {
		return Question{}, err
	}
	gen, err := s.assessor.GenerateQuestion(ctx, assessor.GenerateRequest{
		TestName:        t.Name,
		TestDescription: t.Description,
	})
	if err != nil {
		s.log.Warn("question generation failed", zap.String("test_id", testID), zap.Error(err))
		return Question{}, upstream("generate question", err)
	}
	content := strings.TrimSpace(gen.Question)
	if content == "" {
		return Question{}, fmt.Errorf("generate question: %w: empty question in reply", ErrUpstream)
	}
	return s.createQuestion(ctx, owner, testID, QuestionInput{
		Content:       content,
		CorrectAnswer: strings.TrimSpace(gen.Answer),
		Explanation:   strings.TrimSpace(gen.Explanation),
	})
}

func (s *Service) createQuestion(ctx context.Context, owner, testID string, in QuestionInput) (Question, error) {
	now := s.stamp()
	q := Question{
		ID:            s.newID(),
		TestID:        testID,
		Owner:         owner,
		Content:       in.Content,
		CorrectAnswer: in.CorrectAnswer,
		Explanation:   in.Explanation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return Question{}, err
	}
	s.notify.Notify(ctx, EventQuestionCreated, owner, q.ID, testID)
	return q, nil
}

// SubmitAnswer has the assessor score answer and records the answer, score
// and feedback on the question.
func (s *Service) SubmitAnswer(ctx context.Context, owner, questionID string, in Answer) (Question, error) {
	in.UserAnswer = strings.TrimSpace(in.UserAnswer)
	if in.UserAnswer == "" {
		return Question{}, invalid("please select a question and provide an answer")
	}
	if err := check(s.validate, in, "invalid answer"); err != nil {
		return Question{}, err
	}
	q, err := s.store.GetQuestion(ctx, owner, questionID)
	if err != nil {
		return Question{}, err
	}
	t, err := s.store.GetTest(ctx, owner, q.TestID)
	if err != nil {
		return Question{}, err
	}

	score, feedback, err := s.score(ctx, t, q, in.UserAnswer)
	if err != nil {
		return Question{}, err
	}

	q.UserAnswer = in.UserAnswer
	q.Score = &score
	q.Feedback = feedback
	q.UpdatedAt = s.stamp()
	if err := s.store.UpdateAnswer(ctx, q); err != nil {
		return Question{}, err
	}
	s.log.Info("answer scored", zap.String("question_id", q.ID), zap.Float64("score", score))
	s.notify.Notify(ctx, EventQuestionUpdated, owner, q.ID, q.TestID)
	return q, nil
}

// score grades answer against the question's reference answer. Questions
// without one are graded locally, since assessors require a reference.
func (s *Service) score(ctx context.Context, t Test, q Question, answer string) (float64, string, error) {
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		res := grading.Similarity(q.CorrectAnswer, answer)
		return res.Score, res.Feedback, nil
	}
	res, err := s.assessor.ScoreAnswer(ctx, assessor.ScoreRequest{
		TestName:        t.Name,
		TestDescription: t.Description,
		TestQuestion:    q.Content,
		RealAnswer:      q.CorrectAnswer,
		UserAnswer:      answer,
	})
	if err != nil {
		s.log.Warn("answer scoring failed", zap.String("question_id", q.ID), zap.Error(err))
		return 0, "", upstream("score answer", err)
	}
	score, err := res.Score.Float()
	if err != nil {
		return 0, "", fmt.Errorf("score answer: %w: %v", ErrUpstream, err)
	}
	return score, strings.TrimSpace(res.Feedback), nil
}

// ResetAnswer clears the recorded answer, score and feedback.
func (s *Service) ResetAnswer(ctx context.Context, owner, questionID string) (Question, error) {
	q, err := s.store.GetQuestion(ctx, owner, questionID)
	if err != nil {
		return Question{}, err
	}
	q.UserAnswer, q.Score, q.Feedback = "", nil, ""
	q.UpdatedAt = s.stamp()
	if err := s.store.UpdateAnswer(ctx, q); err != nil {
		return Question{}, err
	}
	s.notify.Notify(ctx, EventQuestionUpdated, owner, q.ID, q.TestID)
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, owner, id string) error {
	q, err := s.store.GetQuestion(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, owner, id); err != nil {
		return err
	}
	s.notify.Notify(ctx, EventQuestionDeleted, owner, id, q.TestID)
	return nil
}

// upstream classifies an assessor failure.
func upstream(op string, err error) error {
	var re *assessor.RequestError
	var se *assessor.StatusError
	switch {
	case errors.Is(err, assessor.ErrUnavailable):
		return ErrUnavailable
	case errors.As(err, &re):
		return invalid(re.Msg)
	case errors.As(err, &se) && se.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	case errors.As(err, &se) && se.StatusCode == http.StatusBadRequest:
		return invalid(se.Message)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
