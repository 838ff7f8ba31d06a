package checkout

import (
	"sync"
	"time"
)

type registry struct {
	mutex    sync.Mutex
	sessions map[string]*Session
}

func newRegistry() *registry {
	return &registry{
		sessions: map[string]*Session{},
	}
}

func (r *registry) add(session *Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sessions[session.UID] = session
}

func (r *registry) get(uid string) (*Session, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	session, found := r.sessions[uid]
	return session, found
}

func (r *registry) remove(uid string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.sessions, uid)
}

// idle lists the sessions without any activity since cutoff.
func (r *registry) idle(cutoff time.Time) []*Session {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sessions := []*Session{}
	for _, s := range r.sessions {
		if s.idleSince(cutoff) {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

func (r *registry) size() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.sessions)
}
