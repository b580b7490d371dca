package assessor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replyWith(reply string, seen *string) Model {
	return ModelFunc(func(_ context.Context, prompt string) (string, error) {
		if seen != nil {
			*seen = prompt
		}
		return reply, nil
	})
}

func TestEngineGenerateQuestionFormats(t *testing.T) {
	cases := map[string]string{
		"json":          `{"Question":"What is 2+2?","Answer":"4","Explanation":"Basic addition."}`,
		"single quoted": `{ 'Question': 'What is 2+2?', 'Answer': '4', 'Explanation': 'Basic addition.' }`,
		"fenced":        "```json\n{\"Question\":\"What is 2+2?\",\"Answer\":\"4\",\"Explanation\":\"Basic addition.\"}\n```",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			var prompt string
			e := NewEngine(replyWith(reply, &prompt), nil)
			got, err := e.GenerateQuestion(context.Background(), GenerateRequest{TestName: "Arithmetic", TestDescription: "sums"})
			require.NoError(t, err)
			assert.Equal(t, GeneratedQuestion{Question: "What is 2+2?", Answer: "4", Explanation: "Basic addition."}, got)
			assert.Contains(t, prompt, "Generate a question of test: Arithmetic, test description: sums.")
		})
	}
}

func TestEngineGenerateQuestionRequiresName(t *testing.T) {
	e := NewEngine(replyWith("{}", nil), nil)
	_, err := e.GenerateQuestion(context.Background(), GenerateRequest{TestName: "  "})
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "testname is required", re.Msg)
}

func TestEngineGenerateQuestionBadReplies(t *testing.T) {
	e := NewEngine(replyWith(`{"Question":"Q?","Answer":""}`, nil), nil)
	_, err := e.GenerateQuestion(context.Background(), GenerateRequest{TestName: "T"})
	var pe *ReplyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MsgIncomplete, pe.Msg)
	assert.Equal(t, `{"Question":"Q?","Answer":""}`, pe.Raw)

	e = NewEngine(replyWith("Sure! Here is a question.", nil), nil)
	_, err = e.GenerateQuestion(context.Background(), GenerateRequest{TestName: "T"})
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MsgInvalidFormat, pe.Msg)
}

func TestEngineModelFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	e := NewEngine(ModelFunc(func(context.Context, string) (string, error) { return "", boom }), nil)
	_, err := e.GenerateQuestion(context.Background(), GenerateRequest{TestName: "T"})
	require.ErrorIs(t, err, boom)
}

func TestEngineScoreAnswer(t *testing.T) {
	var prompt string
	e := NewEngine(replyWith(`{ 'Score': '85', 'Feedback': 'Mostly right.' }`, &prompt), nil)
	got, err := e.ScoreAnswer(context.Background(), ScoreRequest{
		TestName: "Geo", TestQuestion: "Capital of France?", RealAnswer: "Paris", UserAnswer: "paris",
	})
	require.NoError(t, err)
	assert.Equal(t, Score("85"), got.Score)
	assert.Equal(t, "Mostly right.", got.Feedback)
	assert.True(t, strings.HasPrefix(prompt, "Here is the Test name: Geo\n"))
	assert.Contains(t, prompt, "User Answer: paris\n")

	e = NewEngine(replyWith(`{"Score": 70, "Feedback": "ok"}`, nil), nil)
	got, err = e.ScoreAnswer(context.Background(), ScoreRequest{TestName: "a", TestQuestion: "b", RealAnswer: "c", UserAnswer: "d"})
	require.NoError(t, err)
	assert.Equal(t, Score("70"), got.Score)
}

func TestEngineScoreAnswerMissingFields(t *testing.T) {
	e := NewEngine(replyWith("{}", nil), nil)
	_, err := e.ScoreAnswer(context.Background(), ScoreRequest{TestName: "a", RealAnswer: "c"})
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "All fields (testquestion, useranswer) are required", re.Msg)
}

func TestScoreFloat(t *testing.T) {
	for in, want := range map[Score]float64{
		"85":        85,
		" 92.5 ":    92.5,
		"85/100":    85,
		"70 points": 70,
		"-3":        -3,
		".5":        0.5,
	} {
		got, err := in.Float()
		require.NoError(t, err, string(in))
		assert.Equal(t, want, got, string(in))
	}
	for _, bad := range []Score{"", "N/A", "-", "score: 80"} {
		_, err := bad.Float()
		assert.Error(t, err, string(bad))
	}
}

func TestScoreUnmarshal(t *testing.T) {
	var v struct{ Score Score }
	require.NoError(t, json.Unmarshal([]byte(`{"Score": 88.5}`), &v))
	assert.Equal(t, Score("88.5"), v.Score)
	require.NoError(t, json.Unmarshal([]byte(`{"Score": " 90 "}`), &v))
	assert.Equal(t, Score("90"), v.Score)
	require.NoError(t, json.Unmarshal([]byte(`{"Score": null}`), &v))
	assert.Equal(t, Score(""), v.Score)
	assert.Error(t, json.Unmarshal([]byte(`{"Score": true}`), &v))
}

func TestOfflineAssessor(t *testing.T) {
	var a Assessor = Offline{}
	_, err := a.GenerateQuestion(context.Background(), GenerateRequest{TestName: "T"})
	require.ErrorIs(t, err, ErrUnavailable)

	got, err := a.ScoreAnswer(context.Background(), ScoreRequest{TestName: "T", TestQuestion: "Q", RealAnswer: "Paris", UserAnswer: "paris!"})
	require.NoError(t, err)
	assert.Equal(t, Score("100"), got.Score)
	assert.Equal(t, "Correct.", got.Feedback)
}
