// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/relabs-tech/audio_compass/internal/config"
)

const (
	wsWriteTimeout = 2 * time.Second
	maxLockBody    = 1 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is what a browser may send on the live feed.
type WSMessage struct {
	Action string `json:"action"` // lock, unlock, toggle
}

// WSResponse is what the live feed sends.
type WSResponse struct {
	Type    string        `json:"type"` // state, error
	State   *StateMessage `json:"state,omitempty"`
	Message string        `json:"message,omitempty"`
}

// webServer keeps the latest state seen on MQTT and fans it out to
// websocket clients. Lock commands are published back to the broker.
type webServer struct {
	logger      golog.Logger
	publishLock func(payload []byte) error

	mu   sync.Mutex
	last StateMessage
	have bool
	subs map[chan StateMessage]struct{}
}

func newWebServer(publishLock func([]byte) error, logger golog.Logger) *webServer {
	return &webServer{
		logger:      logger,
		publishLock: publishLock,
		subs:        map[chan StateMessage]struct{}{},
	}
}

// update stores msg and offers it to every client, replacing anything a
// slow client has not read yet.
func (s *webServer) update(msg StateMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = msg
	s.have = true
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- msg
	}
}

func (s *webServer) subscribe() (chan StateMessage, StateMessage, bool) {
	ch := make(chan StateMessage, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[ch] = struct{}{}
	return ch, s.last, s.have
}

func (s *webServer) unsubscribe(ch chan StateMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, ch)
}

func (s *webServer) latest() (StateMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.have
}

func (s *webServer) handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/lock", s.handleLock)
	mux.HandleFunc("/ws", s.handleWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (s *webServer) handleState(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		s.logger.Debugw("json encode error", "error", err)
	}
}

// handleLock accepts {"locked":bool}; an empty body toggles.
func (s *webServer) handleLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLockBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := DecodeLock(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.publishLock(body); err != nil {
		s.logger.Warnw("lock publish failed", "error", err)
		http.Error(w, "broker unavailable", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	ch, last, have := s.subscribe()
	defer s.unsubscribe(ch)

	// the reader owns the read side; commands come back to the writer
	actions := make(chan WSMessage, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case actions <- msg:
			default:
			}
		}
	}()

	send := func(resp WSResponse) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return false
		}
		return conn.WriteJSON(resp) == nil
	}

	if have && !send(WSResponse{Type: "state", State: &last}) {
		return
	}
	for {
		select {
		case <-done:
			return
		case msg := <-ch:
			if !send(WSResponse{Type: "state", State: &msg}) {
				return
			}
		case a := <-actions:
			if err := s.action(a); err != nil {
				if !send(WSResponse{Type: "error", Message: err.Error()}) {
					return
				}
			}
		}
	}
}

func (s *webServer) action(a WSMessage) error {
	var payload []byte
	switch a.Action {
	case "lock":
		payload = []byte(`{"locked":true}`)
	case "unlock":
		payload = []byte(`{"locked":false}`)
	case "toggle":
	default:
		return errors.Errorf("unknown action %q", a.Action)
	}
	return s.publishLock(payload)
}

// RunWeb serves the compass state over HTTP and a websocket feed until
// ctx is done.
func RunWeb(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)

	srv := newWebServer(func(payload []byte) error {
		token := client.Publish(cfg.TopicLock, 0, false, payload)
		token.Wait()
		return token.Error()
	}, logger)

	if err := subscribe(client, cfg.TopicState, func(payload []byte) {
		var msg StateMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warnw("state unmarshal error", "error", err)
			return
		}
		srv.update(msg)
	}); err != nil {
		return err
	}
	logger.Infow("subscribed", "topic", cfg.TopicState)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           srv.handler("web"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Infow("web server listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "web server")
	}
	return nil
}
