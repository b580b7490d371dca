package assessor

import (
	"context"
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Offline is used when no endpoint or model is configured. It cannot write
// questions, and it scores answers by text similarity.
type Offline struct{}

func (Offline) GenerateQuestion(context.Context, GenerateRequest) (GeneratedQuestion, error) {
	return GeneratedQuestion{}, ErrUnavailable
}

func (Offline) ScoreAnswer(_ context.Context, req ScoreRequest) (ScoredAnswer, error) {
	if missing := missingScoreFields(req); len(missing) > 0 {
		return ScoredAnswer{}, &RequestError{Msg: requiredMsg(missing)}
	}
	res := grading.Similarity(req.RealAnswer, req.UserAnswer)
	return ScoredAnswer{
		Score:    Score(strconv.FormatFloat(res.Score, 'f', -1, 64)),
		Feedback: res.Feedback,
	}, nil
}
