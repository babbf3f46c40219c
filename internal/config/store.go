package config

import "sync/atomic"

// Store holds the current configuration and supports atomic swaps.
// Generation increases on every Update so readers can notice a reload.
type Store struct {
	cur atomic.Pointer[Config]
	gen atomic.Uint64
}

// NewStore creates a Store with the initial configuration.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.cur.Store(cfg)
	return s
}

// Current returns the current configuration.
func (s *Store) Current() *Config {
	return s.cur.Load()
}

// Generation returns the number of updates applied since creation.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// Update replaces the current configuration.
func (s *Store) Update(cfg *Config) {
	s.cur.Store(cfg)
	s.gen.Add(1)
}
