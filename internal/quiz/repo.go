package quiz

import "context"

// Store persists tests and questions. Every lookup is scoped by owner: a
// record of another owner is reported as ErrNotFound. Lists are ordered by
// created_at, then id.
type Store interface {
	CreateTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, owner, id string) (Test, error)
	ListTests(ctx context.Context, owner string) ([]Test, error)
	UpdateTest(ctx context.Context, t Test) error
	// DeleteTest removes the test and its questions.
	DeleteTest(ctx context.Context, owner, id string) error

	CreateQuestion(ctx context.Context, q Question) error
	GetQuestion(ctx context.Context, owner, id string) (Question, error)
	ListQuestions(ctx context.Context, owner, testID string) ([]Question, error)
	// UpdateAnswer writes useranswer, score, feedback and updated_at.
	UpdateAnswer(ctx context.Context, q Question) error
	DeleteQuestion(ctx context.Context, owner, id string) error
}
