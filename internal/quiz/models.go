package quiz

import "time"

// Test is a named collection of questions owned by one user.
type Test struct {
	ID          string    `json:"id" yaml:"id"`
	Owner       string    `json:"owner" yaml:"owner"`
	Name        string    `json:"testname" yaml:"testname"`
	Description string    `json:"testdescription" yaml:"testdescription"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

type Question struct {
	ID            string   `json:"id" yaml:"id"`
	TestID        string   `json:"test_id" yaml:"test_id"`
	Owner         string   `json:"owner" yaml:"owner"`
	Content       string   `json:"questioncontent" yaml:"questioncontent"`
	CorrectAnswer string   `json:"correctanswer" yaml:"correctanswer"`
	Explanation   string   `json:"answerexplanation" yaml:"answerexplanation"`
	UserAnswer    string   `json:"useranswer" yaml:"useranswer"`
	Score         *float64 `json:"score" yaml:"score"` // nil until graded
	Feedback      string   `json:"feedback" yaml:"feedback"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Graded reports whether the question has been scored.
func (q Question) Graded() bool { return q.Score != nil }

type NewTest struct {
	Name        string `json:"testname" validate:"required,max=200"`
	Description string `json:"testdescription" validate:"max=4000"`
}

// TestPatch updates the non-nil fields of a test.
type TestPatch struct {
	Name        *string `json:"testname,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"testdescription,omitempty" validate:"omitempty,max=4000"`
}

// QuestionInput is a hand-written question.
type QuestionInput struct {
	Content       string `json:"questioncontent" validate:"required,max=4000"`
	CorrectAnswer string `json:"correctanswer" validate:"max=4000"`
	Explanation   string `json:"answerexplanation" validate:"max=8000"`
}

type Answer struct {
	UserAnswer string `json:"useranswer" validate:"required,max=4000"`
}

// TestExport is a test together with its questions, oldest first.
type TestExport struct {
	Test      `yaml:",inline"`
	Questions []Question `json:"questions" yaml:"questions"`
}
