package assessor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Model completes a single prompt. The reply is expected to hold a JSON
// object, possibly wrapped in a Markdown code fence.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Engine implements Assessor on top of a language model.
type Engine struct {
	model Model
	log   *zap.Logger
}

func NewEngine(m Model, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{model: m, log: log}
}

func (e *Engine) GenerateQuestion(ctx context.Context, req GenerateRequest) (GeneratedQuestion, error) {
	if strings.TrimSpace(req.TestName) == "" {
		return GeneratedQuestion{}, &RequestError{Msg: "testname is required"}
	}
	raw, err := e.model.Complete(ctx, generatePrompt(req))
	if err != nil {
		return GeneratedQuestion{}, fmt.Errorf("generate question: %w", err)
	}
	e.log.Debug("raw model response", zap.String("op", "generate"), zap.String("raw", raw))

	var out GeneratedQuestion
	if err := decodeReply(raw, &out); err != nil {
		return GeneratedQuestion{}, &ReplyError{Msg: MsgInvalidFormat, Raw: raw}
	}
	out.Question = strings.TrimSpace(out.Question)
	out.Answer = strings.TrimSpace(out.Answer)
	out.Explanation = strings.TrimSpace(out.Explanation)
	if out.Question == "" || out.Answer == "" || out.Explanation == "" {
		return GeneratedQuestion{}, &ReplyError{Msg: MsgIncomplete, Raw: raw}
	}
	return out, nil
}

func (e *Engine) ScoreAnswer(ctx context.Context, req ScoreRequest) (ScoredAnswer, error) {
	if missing := missingScoreFields(req); len(missing) > 0 {
		return ScoredAnswer{}, &RequestError{Msg: requiredMsg(missing)}
	}
	raw, err := e.model.Complete(ctx, scorePrompt(req))
	if err != nil {
		return ScoredAnswer{}, fmt.Errorf("score answer: %w", err)
	}
	e.log.Debug("raw model response", zap.String("op", "score"), zap.String("raw", raw))

	var out ScoredAnswer
	if err := decodeReply(raw, &out); err != nil {
		return ScoredAnswer{}, &ReplyError{Msg: MsgInvalidFormat, Raw: raw}
	}
	out.Feedback = strings.TrimSpace(out.Feedback)
	if out.Score == "" || out.Feedback == "" {
		return ScoredAnswer{}, &ReplyError{Msg: MsgIncomplete, Raw: raw}
	}
	return out, nil
}

func missingScoreFields(req ScoreRequest) []string {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"testname", req.TestName},
		{"testquestion", req.TestQuestion},
		{"realanswer", req.RealAnswer},
		{"useranswer", req.UserAnswer},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func requiredMsg(missing []string) string {
	return "All fields (" + strings.Join(missing, ", ") + ") are required"
}

func generatePrompt(req GenerateRequest) string {
	return fmt.Sprintf("Generate a question of test: %s, test description: %s. "+
		"Respond with this format: { 'Question': '<question>', 'Answer': '<answer>', 'Explanation': '<explanation>' }.",
		req.TestName, req.TestDescription)
}

func scorePrompt(req ScoreRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is the Test name: %s\n", req.TestName)
	fmt.Fprintf(&b, "and test description: %s\n", req.TestDescription)
	b.WriteString("Evaluate the user's answer for the following question:\n")
	fmt.Fprintf(&b, "Question: %s\n", req.TestQuestion)
	fmt.Fprintf(&b, "Correct Answer: %s\n", req.RealAnswer)
	fmt.Fprintf(&b, "User Answer: %s\n", req.UserAnswer)
	b.WriteString("Provide a score out of 100 with a brief explanation. " +
		"Respond in this format: { 'Score': '<score>', 'Feedback': '<feedback>' }.")
	return b.String()
}

// decodeReply parses a model reply into v. Replies in the single-quoted
// format of the prompt are accepted by swapping quotes on a second pass.
func decodeReply(raw string, v any) error {
	text := stripFence(strings.TrimSpace(raw))
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	return json.Unmarshal([]byte(strings.ReplaceAll(text, "'", `"`)), v)
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
