package showtimes

import (
	"sync"

	"github.com/drewfead/moviebuddy/internal"
)

// Selected is the showtime currently open in a detail view.
type Selected struct {
	mu       sync.Mutex
	showtime *internal.Showtime
}

func (s *Selected) Select(st internal.Showtime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showtime = &st
}

func (s *Selected) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showtime = nil
}

func (s *Selected) Current() (internal.Showtime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showtime == nil {
		return internal.Showtime{}, false
	}
	return *s.showtime, true
}

// patch applies p if showtimeID is selected and returns the previous value for restore.
func (s *Selected) patch(showtimeID int, p Patch) (internal.Showtime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showtime == nil || s.showtime.ID != showtimeID {
		return internal.Showtime{}, false
	}
	prev := *s.showtime
	next := p(prev)
	s.showtime = &next
	return prev, true
}

// restore puts prev back unless another showtime has been selected since.
func (s *Selected) restore(prev internal.Showtime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showtime == nil || s.showtime.ID != prev.ID {
		return
	}
	s.showtime = &prev
}
