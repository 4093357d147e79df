// Package sessions maps browser sessions onto planner workspaces.
package sessions

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/services/planner"
)

// HeaderName carries the session id for clients that do not keep cookies
const HeaderName = "X-Zola-Session"

// Factory builds the workspace for a new session id
type Factory func(id string) *planner.Workspace

// Manager keeps a bounded set of workspaces, evicting the least recently used
// and those idle longer than the configured ttl
type Manager struct {
	mu         sync.Mutex
	workspaces *expirable.LRU[string, *planner.Workspace]
	factory    Factory
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     arbor.ILogger
}

// NewManager creates a session manager
func NewManager(cfg common.SessionsConfig, secureCookies bool, factory Factory, logger arbor.ILogger) *Manager {
	size := cfg.MaxSessions
	if size <= 0 {
		size = 1000
	}
	ttl := common.ParseDuration(cfg.IdleTTL, 2*time.Hour)
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "zola_session"
	}

	m := &Manager{
		factory:    factory,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secureCookies,
		logger:     logger,
	}
	m.workspaces = expirable.NewLRU[string, *planner.Workspace](size, func(id string, _ *planner.Workspace) {
		logger.Debug().Str("session", id).Msg("Session evicted")
	}, ttl)
	return m
}

// Get returns the workspace for id and refreshes its idle timer
func (m *Manager) Get(id string) (*planner.Workspace, bool) {
	if id == "" {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.workspaces.Get(id)
	if !ok {
		return nil, false
	}
	m.workspaces.Add(id, ws)
	return ws, true
}

// Create starts a new session
func (m *Manager) Create() *planner.Workspace {
	id := common.NewSessionID()
	ws := m.factory(id)

	m.mu.Lock()
	m.workspaces.Add(id, ws)
	m.mu.Unlock()

	m.logger.Debug().Str("session", id).Msg("Session created")
	return ws
}

// Resolve returns the workspace named by the request's session header or
// cookie, creating a new session when neither names a live one. The session
// id is written back on the response.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) *planner.Workspace {
	ws, ok := m.Get(m.requestID(r))
	if !ok {
		ws = m.Create()
	}

	w.Header().Set(HeaderName, ws.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    ws.ID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return ws
}

func (m *Manager) requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderName)); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("session")); id != "" {
		return id
	}
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workspaces.Len()
}

// Purge drops every session
func (m *Manager) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces.Purge()
}
