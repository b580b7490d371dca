package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

func newSQLStore(t *testing.T) Store {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return NewSQLStore(h)
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, newInMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLStore(t)) })
}

var epoch = time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)

func mkTest(id, owner string, at time.Duration) Test {
	ts := epoch.Add(at)
	return Test{ID: id, Owner: owner, Name: "name-" + id, CreatedAt: ts, UpdatedAt: ts}
}

func mkQuestion(id, testID, owner string, at time.Duration) Question {
	ts := epoch.Add(at)
	return Question{ID: id, TestID: testID, Owner: owner, Content: "content-" + id, CreatedAt: ts, UpdatedAt: ts}
}

func TestStoreTestsOrderedAndOwnerScoped(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateTest(ctx, mkTest("t3", "alice", 3*time.Second)))
		require.NoError(t, s.CreateTest(ctx, mkTest("t1", "alice", time.Second)))
		require.NoError(t, s.CreateTest(ctx, mkTest("t2b", "alice", 2*time.Second)))
		require.NoError(t, s.CreateTest(ctx, mkTest("t2a", "alice", 2*time.Second)))
		require.NoError(t, s.CreateTest(ctx, mkTest("bob1", "bob", 0)))

		list, err := s.ListTests(ctx, "alice")
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, x := range list {
			ids = append(ids, x.ID)
		}
		assert.Equal(t, []string{"t1", "t2a", "t2b", "t3"}, ids)

		got, err := s.GetTest(ctx, "alice", "t1")
		require.NoError(t, err)
		assert.Equal(t, "name-t1", got.Name)
		assert.True(t, got.CreatedAt.Equal(epoch.Add(time.Second)))

		_, err = s.GetTest(ctx, "alice", "bob1")
		assert.ErrorIs(t, err, ErrNotFound)

		empty, err := s.ListTests(ctx, "carol")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})
}

func TestStoreUpdateAndDeleteTest(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateTest(ctx, mkTest("t1", "alice", 0)))
		require.NoError(t, s.CreateQuestion(ctx, mkQuestion("q1", "t1", "alice", time.Second)))

		upd := mkTest("t1", "alice", 0)
		upd.Name, upd.Description = "Renamed", "desc"
		upd.UpdatedAt = epoch.Add(time.Minute)
		require.NoError(t, s.UpdateTest(ctx, upd))

		got, err := s.GetTest(ctx, "alice", "t1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, "desc", got.Description)
		assert.True(t, got.UpdatedAt.Equal(epoch.Add(time.Minute)))

		upd.Owner = "bob"
		assert.ErrorIs(t, s.UpdateTest(ctx, upd), ErrNotFound)
		assert.ErrorIs(t, s.DeleteTest(ctx, "bob", "t1"), ErrNotFound)

		require.NoError(t, s.DeleteTest(ctx, "alice", "t1"))
		_, err = s.GetTest(ctx, "alice", "t1")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetQuestion(ctx, "alice", "q1")
		assert.ErrorIs(t, err, ErrNotFound, "questions are deleted with their test")
	})
}

func TestStoreQuestions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateTest(ctx, mkTest("t1", "alice", 0)))
		require.NoError(t, s.CreateTest(ctx, mkTest("t2", "alice", 0)))
		require.NoError(t, s.CreateQuestion(ctx, mkQuestion("q2", "t1", "alice", 2*time.Second)))
		require.NoError(t, s.CreateQuestion(ctx, mkQuestion("q1", "t1", "alice", time.Second)))
		require.NoError(t, s.CreateQuestion(ctx, mkQuestion("qx", "t2", "alice", time.Second)))

		list, err := s.ListQuestions(ctx, "alice", "t1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "q1", list[0].ID)
		assert.Equal(t, "q2", list[1].ID)
		assert.Nil(t, list[0].Score)
		assert.False(t, list[0].Graded())

		q := list[0]
		score := 85.5
		q.UserAnswer, q.Score, q.Feedback = "my answer", &score, "good"
		q.UpdatedAt = epoch.Add(time.Hour)
		require.NoError(t, s.UpdateAnswer(ctx, q))
		score = 0 // the store must not alias the caller's pointer

		got, err := s.GetQuestion(ctx, "alice", "q1")
		require.NoError(t, err)
		require.NotNil(t, got.Score)
		assert.Equal(t, 85.5, *got.Score)
		assert.Equal(t, "my answer", got.UserAnswer)
		assert.Equal(t, "good", got.Feedback)

		got.Score = nil
		got.UserAnswer, got.Feedback = "", ""
		require.NoError(t, s.UpdateAnswer(ctx, got))
		got, err = s.GetQuestion(ctx, "alice", "q1")
		require.NoError(t, err)
		assert.Nil(t, got.Score)

		_, err = s.GetQuestion(ctx, "bob", "q1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteQuestion(ctx, "bob", "q1"), ErrNotFound)
		require.NoError(t, s.DeleteQuestion(ctx, "alice", "q1"))
		assert.ErrorIs(t, s.DeleteQuestion(ctx, "alice", "q1"), ErrNotFound)
	})
}
