package server

import (
	"sort"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/lanikai/framecast/internal/stream"
)

// SessionInfo describes a live or recently finished session.
type SessionInfo struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	Quality     string    `json:"quality"`
	State       string    `json:"state"`
	Paused      bool      `json:"paused"`
	Started     time.Time `json:"started"`
	FramesRead  int64     `json:"framesRead"`
	FramesSent  int64     `json:"framesSent"`
	BatchesSent int64     `json:"batchesSent"`
	Reason      string    `json:"reason,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type liveSession struct {
	session *stream.Session
	remote  string
	started time.Time
}

func (l *liveSession) info() SessionInfo {
	framesRead, framesSent, batchesSent := l.session.Stats()
	return SessionInfo{
		ID:          l.session.ID,
		Remote:      l.remote,
		Quality:     l.session.Quality.String(),
		State:       l.session.State(),
		Paused:      l.session.Paused(),
		Started:     l.started,
		FramesRead:  framesRead,
		FramesSent:  framesSent,
		BatchesSent: batchesSent,
	}
}

// registry tracks live sessions and keeps the summaries of the most recently
// finished ones.
type registry struct {
	mu       sync.Mutex
	live     map[string]*liveSession
	finished *lru.Cache
}

func newRegistry(history int) *registry {
	if history <= 0 {
		history = 1
	}
	return &registry{
		live:     make(map[string]*liveSession),
		finished: lru.New(history),
	}
}

func (r *registry) add(s *stream.Session, remote string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[s.ID] = &liveSession{s, remote, time.Now()}
}

func (r *registry) finish(s *stream.Session, result stream.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.live[s.ID]
	if !ok {
		return
	}
	delete(r.live, s.ID)

	info := l.info()
	info.Reason = result.Reason.String()
	if result.Err != nil {
		info.Error = result.Err.Error()
	}
	r.finished.Add(s.ID, info)
}

// active lists live sessions, oldest first.
func (r *registry) active() []SessionInfo {
	r.mu.Lock()
	infos := make([]SessionInfo, 0, len(r.live))
	for _, l := range r.live {
		infos = append(infos, l.info())
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Started.Before(infos[j].Started)
	})
	return infos
}

func (r *registry) lookup(id string) (SessionInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.live[id]; ok {
		return l.info(), true
	}
	if v, ok := r.finished.Get(id); ok {
		return v.(SessionInfo), true
	}
	return SessionInfo{}, false
}
