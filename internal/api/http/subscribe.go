package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// snapshot is the only message type pushed to subscribers: the full, sorted
// list the client should now display.
type snapshot struct {
	Type   string `json:"type"`
	Model  string `json:"model"`
	TestID string `json:"test_id,omitempty"`
	Items  any    `json:"items"`
}

// Subscriptions serves the WebSocket observe-query endpoints.
type Subscriptions struct {
	Service        *quiz.Service
	Hub            *events.Hub
	Logger         *zap.Logger
	AllowedOrigins []string
}

func (s *Subscriptions) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(s.AllowedOrigins, "*") || slices.Contains(s.AllowedOrigins, origin)
		},
	}
}

// GET /subscribe/tests
func (s *Subscriptions) Tests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		own := owner(r)
		s.serve(w, r, own, "tests", "",
			func(e events.Event) bool { return strings.HasPrefix(e.Type, "test.") },
			func(ctx context.Context) (any, error) { return s.Service.ListTests(ctx, own) })
	}
}

// GET /subscribe/tests/{testID}/questions
func (s *Subscriptions) Questions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		own, testID := owner(r), chi.URLParam(r, "testID")
		if _, err := s.Service.GetTest(r.Context(), own, testID); err != nil {
			writeError(w, s.Logger, err)
			return
		}
		s.serve(w, r, own, "questions", testID,
			func(e events.Event) bool { return e.TestID == testID },
			func(ctx context.Context) (any, error) { return s.Service.ListQuestions(ctx, own, testID) })
	}
}

func (s *Subscriptions) serve(w http.ResponseWriter, r *http.Request, own, model, testID string,
	match func(events.Event) bool, load func(context.Context) (any, error)) {

	// subscribe before the first load so no change slips in between
	sub := s.Hub.Subscribe(own)
	defer sub.Close()

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return // the upgrader has replied
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	defer func() {
		_ = conn.Close()
		<-done
	}()

	log := s.Logger.With(zap.String("owner", own), zap.String("model", model))
	send := func() bool {
		items, err := load(ctx)
		if errors.Is(err, quiz.ErrNotFound) {
			closeWith(conn, websocket.CloseNormalClosure, "deleted")
			return false
		}
		if err != nil {
			log.Warn("snapshot load failed", zap.Error(err))
			closeWith(conn, websocket.CloseInternalServerErr, "snapshot failed")
			return false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snapshot{Type: "snapshot", Model: model, TestID: testID, Items: items}); err != nil {
			log.Debug("subscriber write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send() {
		return
	}
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				closeWith(conn, websocket.CloseGoingAway, "server shutting down")
				return
			}
			if !match(e) || !drain(sub) {
				continue
			}
			if !send() {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// drain discards queued events so a burst yields one snapshot. It reports
// false when the subscription closed.
func drain(sub *events.Subscription) bool {
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
