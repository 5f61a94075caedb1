package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans session events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // session id -> channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for a session. The returned func removes it.
func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Subscribers returns how many listeners a session has.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast sends msg to every listener of the session. Slow listeners miss it.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse buffer full, dropping event", "session", sessionID)
		}
	}
}

func (sm *StreamManager) publish(sessionID string, event any) {
	bytes, err := json.Marshal(event)
	if err != nil {
		sm.logger.Error("encode event", "session", sessionID, "err", err)
		return
	}
	sm.Broadcast(sessionID, string(bytes))
}

// PublishDiff broadcasts what changed between two snapshots of a session.
func (sm *StreamManager) PublishDiff(old *domain.Snapshot, cur domain.Snapshot) {
	if d := domain.Diff(old, cur, time.Now().UTC()); d != nil {
		sm.publish(cur.SessionID, d)
	}
}

// Hooks returns lifecycle hooks that broadcast every engine event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			sm.publish(e.SessionID, e)
		},
		OnValidation: func(_ context.Context, e *domain.ValidationEvent) {
			sm.publish(e.SessionID, e)
		},
		OnDraftSaved: func(_ context.Context, e *domain.DraftEvent) {
			sm.publish(e.SessionID, e)
		},
		OnDraftDiscarded: func(_ context.Context, e *domain.DraftEvent) {
			sm.publish(e.SessionID, e)
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			sm.publish(e.SessionID, e)
		},
	}
}

// SubscribeEvents handles GET /intakes/{id}/events. The optional "types"
// query parameter is a comma separated filter of event types.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.streams == nil {
		http.Error(w, "event streaming disabled", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types = append(types, strings.TrimSpace(t))
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("sse subscribed", "session", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client gone", "session", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			name := eventName(msg)
			if len(types) > 0 && !slices.Contains(types, name) {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, msg)
			flusher.Flush()
		}
	}
}

func eventName(msg string) string {
	var head domain.EventBase
	if err := json.Unmarshal([]byte(msg), &head); err != nil || head.Type == "" {
		return "message"
	}
	return string(head.Type)
}
