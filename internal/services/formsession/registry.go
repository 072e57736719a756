package formsession

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"survey-drafts/internal/drafts"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

// Registry hosts the open form sessions of this process
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*FormSession
	deps     sessionDeps
	hub      *Hub

	idleTimeout     time.Duration
	cleanupInterval time.Duration
	done            chan struct{}
	once            sync.Once
	log             *logger.Logger
}

type Options struct {
	AutosaveDelay time.Duration
	IdleTimeout   time.Duration
}

func NewRegistry(manager *drafts.Manager, bridge *drafts.Bridge, hub *Hub, opts Options, log *logger.Logger) *Registry {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	log = log.With("component", "FormSessionRegistry")
	return &Registry{
		sessions: make(map[string]*FormSession),
		deps: sessionDeps{
			manager: manager,
			bridge:  bridge,
			notify:  hub,
			delay:   opts.AutosaveDelay,
			log:     log,
		},
		hub:             hub,
		idleTimeout:     opts.IdleTimeout,
		cleanupInterval: 30 * time.Second,
		done:            make(chan struct{}),
		log:             log,
	}
}

// Open starts a blank form for op (nil for anonymous)
func (r *Registry) Open(op *models.Operator) *FormSession {
	s := newFormSession(uuid.NewString(), op, r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	total := len(r.sessions)
	r.mu.Unlock()

	r.log.Info("form session opened", "session_id", s.ID(), "user_id", models.OperatorID(op), "open_sessions", total)
	return s
}

func (r *Registry) Get(id string) (*FormSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, drafts.ErrSessionNotFound
	}
	return s, nil
}

// Close unloads the session (saving unsaved edits) and forgets it
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return drafts.ErrSessionNotFound
	}

	s.Unload()
	r.log.Info("form session closed", "session_id", id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Start runs the idle sweep
func (r *Registry) Start() {
	go r.cleanupLoop()
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.cleanup(now)
		}
	}
}

// cleanup closes sessions idle for longer than the timeout. A session with
// a socket attached is never idle-closed; its socket close unloads it.
func (r *Registry) cleanup(now time.Time) int {
	r.mu.RLock()
	var stale []string
	for id, s := range r.sessions {
		if r.hub != nil && r.hub.Clients(id) > 0 {
			continue
		}
		if now.Sub(s.LastActive()) > r.idleTimeout {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.log.Info("closing idle form session", "session_id", id)
		_ = r.Close(id)
	}
	return len(stale)
}

// Shutdown unloads every session so no edit is lost on exit
func (r *Registry) Shutdown() {
	r.once.Do(func() {
		close(r.done)

		r.mu.Lock()
		sessions := r.sessions
		r.sessions = make(map[string]*FormSession)
		r.mu.Unlock()

		for _, s := range sessions {
			s.Unload()
		}
		r.log.Info("form sessions unloaded", "count", len(sessions))
	})
}
