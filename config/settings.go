package config

import (
	"sync"
)

// Settings is the live, thread-safe copy of the video parameters.
// Control paths (key bindings, config reloads) write it; the rendering thread takes one snapshot per frame.
// Only scalar fields live here, so no write can reallocate GPU resources.
type Settings interface {
	// Snapshot returns a copy of the current parameters.
	//
	// Returns:
	//   - Video: the current parameters
	Snapshot() Video

	// Update applies fn to the parameters under the settings lock, then normalizes them.
	//
	// Parameters:
	//   - fn: mutation applied to the parameters
	Update(fn func(v *Video))

	// Replace swaps in a complete set of parameters.
	//
	// Parameters:
	//   - v: the new parameters
	Replace(v Video)

	// Version increments on every change so readers can detect updates cheaply.
	//
	// Returns:
	//   - uint64: the change counter
	Version() uint64
}

type settings struct {
	mu      *sync.RWMutex
	video   Video
	version uint64
}

var _ Settings = &settings{}

// NewSettings creates Settings seeded with v.
//
// Parameters:
//   - v: the initial parameters
//
// Returns:
//   - Settings: the live settings
func NewSettings(v Video) Settings {
	v.Normalize()
	return &settings{
		mu:    &sync.RWMutex{},
		video: v,
	}
}

func (s *settings) Snapshot() Video {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.video
}

func (s *settings) Update(fn func(v *Video)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.video)
	s.video.Normalize()
	s.version++
}

func (s *settings) Replace(v Video) {
	v.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.video = v
	s.version++
}

func (s *settings) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
