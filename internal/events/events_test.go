package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLog(t *testing.T) *Log {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return NewLog(h)
}

func TestLogAppendAndList(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	var seqs []int64
	for i, owner := range []string{"alice", "bob", "alice", "alice"} {
		e := Event{SiteID: "local", Type: "test.created", Key: "k" + string(rune('0'+i)), Owner: owner, TestID: "t1"}
		require.NoError(t, l.Append(ctx, &e))
		seqs = append(seqs, e.Seq)
	}
	assert.Less(t, seqs[0], seqs[1])
	assert.Less(t, seqs[2], seqs[3])

	all, err := l.List(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "k0", all[0].Key)
	assert.Equal(t, "t1", all[0].TestID)
	assert.Equal(t, "alice", all[0].Owner)
	assert.False(t, all[0].CreatedAt.IsZero())

	after, err := l.List(ctx, "alice", all[0].Seq, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "k2", after[0].Key)

	none, err := l.List(ctx, "carol", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	h := NewHub(4)
	defer h.Close()

	alice := h.Subscribe("alice")
	bob := h.Subscribe("bob")
	defer alice.Close()
	defer bob.Close()

	h.Publish(Event{Type: "test.created", Owner: "alice", Key: "t1"})

	select {
	case e := <-alice.Events():
		assert.Equal(t, "t1", e.Key)
	case <-time.After(time.Second):
		t.Fatal("alice got nothing")
	}
	select {
	case e := <-bob.Events():
		t.Fatalf("bob got %+v", e)
	default:
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub(1)
	defer h.Close()
	s := h.Subscribe("alice")

	h.Publish(Event{Owner: "alice", Key: "1"})
	h.Publish(Event{Owner: "alice", Key: "2"})
	assert.Equal(t, int64(1), h.Dropped())

	e := <-s.Events()
	assert.Equal(t, "1", e.Key)
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	h := NewHub(0)
	s := h.Subscribe("alice")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range s.Events() {
		}
	}()
	h.Close()
	wg.Wait()

	s.Close() // no-op after hub close
	late := h.Subscribe("alice")
	_, ok := <-late.Events()
	assert.False(t, ok)
	h.Publish(Event{Owner: "alice"})
}

func TestRecorderAppendsThenPublishes(t *testing.T) {
	l := newLog(t)
	h := NewHub(4)
	defer h.Close()
	s := h.Subscribe("alice")

	r := &Recorder{SiteID: "site-a", Log: l, Hub: h}
	r.Notify(context.Background(), "question.updated", "alice", "q1", "t1")

	e := <-s.Events()
	assert.Equal(t, "question.updated", e.Type)
	assert.Equal(t, "t1", e.TestID)
	assert.Equal(t, "site-a", e.SiteID)
	assert.NotZero(t, e.Seq)

	stored, err := l.List(context.Background(), "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, e.Seq, stored[0].Seq)
}
