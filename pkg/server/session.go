package server

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/recommend"
	"github.com/zdunecki/skymesh/pkg/wizard"
)

const (
	sessionCookie = "skymesh_session"
	sessionTTL    = 24 * time.Hour
)

// session is one browser's state: at most one driver per flow.
type session struct {
	id       string
	mu       sync.Mutex
	drivers  map[string]*wizard.Driver
	orders   []string
	lastSeen time.Time
}

func (s *session) addOrder(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, number)
}

// owns reports whether the order was placed in this session.
func (s *session) owns(number string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.orders, number)
}

// snapshotKey scopes the quiz snapshot to the session.
func (s *session) snapshotKey() string {
	return s.id + "/" + recommend.StorageKey
}

func (s *session) driver(flow string) (*wizard.Driver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[flow]
	return d, ok
}

// replace installs d for flow, closing the previous instance.
func (s *session) replace(flow string, d *wizard.Driver) {
	s.mu.Lock()
	prev := s.drivers[flow]
	s.drivers[flow] = d
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for flow, d := range s.drivers {
		d.Close()
		delete(s.drivers, flow)
	}
}

type sessions struct {
	mu     sync.Mutex
	byID   map[string]*session
	secure bool
	now    func() time.Time
	// forget drops persisted state under a key of an expired session.
	forget func(key string)
}

func newSessions(secure bool, forget func(key string)) *sessions {
	return &sessions{byID: make(map[string]*session), secure: secure, now: time.Now, forget: forget}
}

// get returns the caller's session, creating it and setting the cookie
// when the request carries none or an expired one.
func (ss *sessions) get(w http.ResponseWriter, r *http.Request) *session {
	s, expired := ss.getLocked(w, r)
	for _, e := range expired {
		e.close()
		if ss.forget != nil {
			ss.forget(e.snapshotKey())
		}
		zap.L().Debug("session expired", zap.String("session", e.id))
	}
	return s
}

func (ss *sessions) getLocked(w http.ResponseWriter, r *http.Request) (*session, []*session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	expired := ss.sweepLocked(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := ss.byID[c.Value]; ok {
			s.lastSeen = now
			return s, expired
		}
	}

	s := &session{id: uuid.NewString(), drivers: make(map[string]*wizard.Driver), lastSeen: now}
	ss.byID[s.id] = s
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.id,
		Path:     "/",
		HttpOnly: true,
		Secure:   ss.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL / time.Second),
	})
	zap.L().Debug("session created", zap.String("session", s.id))
	return s, expired
}

// sweepLocked unregisters idle sessions and returns them for cleanup.
func (ss *sessions) sweepLocked(now time.Time) []*session {
	var expired []*session
	for id, s := range ss.byID {
		if now.Sub(s.lastSeen) > sessionTTL {
			expired = append(expired, s)
			delete(ss.byID, id)
		}
	}
	return expired
}

func (ss *sessions) closeAll() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for id, s := range ss.byID {
		s.close()
		delete(ss.byID, id)
	}
}
