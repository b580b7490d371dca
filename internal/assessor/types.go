// Package assessor generates quiz questions and scores answers. The same
// wire contract is served by cmd/quizgen and consumed by quizd.
package assessor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// GenerateRequest is the body of POST /generate-question.
type GenerateRequest struct {
	TestName        string `json:"testname"`
	TestDescription string `json:"testdescription"`
}

// GeneratedQuestion is the body of a successful /generate-question reply.
type GeneratedQuestion struct {
	Question    string `json:"Question"`
	Answer      string `json:"Answer"`
	Explanation string `json:"Explanation"`
}

// ScoreRequest is the body of POST /score-answer.
type ScoreRequest struct {
	TestName        string `json:"testname"`
	TestDescription string `json:"testdescription"`
	TestQuestion    string `json:"testquestion"`
	RealAnswer      string `json:"realanswer"`
	UserAnswer      string `json:"useranswer"`
}

// ScoredAnswer is the body of a successful /score-answer reply.
type ScoredAnswer struct {
	Score    Score  `json:"Score"`
	Feedback string `json:"Feedback"`
}

// Assessor is implemented by the in-process Engine, the HTTP Client and the
// Offline fallback.
type Assessor interface {
	GenerateQuestion(ctx context.Context, req GenerateRequest) (GeneratedQuestion, error)
	ScoreAnswer(ctx context.Context, req ScoreRequest) (ScoredAnswer, error)
}

// Score is a score out of 100. Models reply with either a JSON string
// ("85", "85/100") or a number; it is always written back as a string.
type Score string

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Score(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = Score(n.String())
	return nil
}

// Float parses the leading decimal number of the score, so "85", "85/100"
// and "85 points" all yield 85.
func (s Score) Float() (float64, error) {
	str := strings.TrimSpace(string(s))
	end := 0
	seenDigit, seenDot := false, false
scan:
	for i, r := range str {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0, fmt.Errorf("score %q is not numeric", string(s))
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(str[:end], "."), 64)
	if err != nil {
		return 0, fmt.Errorf("score %q is not numeric", string(s))
	}
	return v, nil
}

// ErrUnavailable is returned when no question generator is configured.
var ErrUnavailable = errors.New("assessor: question generation unavailable")

// RequestError reports an invalid request (HTTP 400).
type RequestError struct{ Msg string }

func (e *RequestError) Error() string { return e.Msg }

const (
	MsgIncomplete    = "Incomplete response from model"
	MsgInvalidFormat = "Invalid response format from model"
)

// ReplyError reports a model reply that could not be turned into a result.
type ReplyError struct {
	Msg string
	Raw string
}

func (e *ReplyError) Error() string { return e.Msg }

// StatusError is returned by Client for non-2xx replies.
type StatusError struct {
	StatusCode int
	Message    string
	Raw        string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("assessor: status %d", e.StatusCode)
	}
	return fmt.Sprintf("assessor: status %d: %s", e.StatusCode, e.Message)
}

// errorBody is the JSON error envelope of both endpoints.
type errorBody struct {
	Error       string `json:"error"`
	RawResponse string `json:"raw_response,omitempty"`
}
