package server

import (
	"sync"

	"modelkombat/config"
)

// StateFactory builds the State of one user. An empty userID must yield a
// State that rejects every operation as unauthenticated.
type StateFactory func(userID string) *config.State

// Pool keeps one State per user so each user's mutations are serialized
// by that State.
type Pool struct {
	mu      sync.Mutex
	states  map[string]*config.State
	factory StateFactory
}

// NewPool creates a Pool
func NewPool(factory StateFactory) *Pool {
	return &Pool{states: make(map[string]*config.State), factory: factory}
}

// Get returns the State of userID. Anonymous States are not cached.
func (p *Pool) Get(userID string) *config.State {
	if userID == "" {
		return p.factory("")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[userID]
	if !ok {
		st = p.factory(userID)
		p.states[userID] = st
	}
	return st
}

// Len returns the number of cached States
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}
