// Package keypool implements shuffle-based key rotation with per-key
// cooldown on rate-limit errors, shared by the News Service (C4) and
// the LLM Router (C5) — both need "N keys per provider, round-robin,
// back off a key that 429s without blocking the others." No single
// corpus file implements this; authored fresh following the pack's
// general mutex-guarded short-critical-section discipline (the same
// shape as fetcher.CircuitBreaker, one level up: many independent
// breakers instead of one).
package keypool

import (
	"math/rand"
	"sync"
	"time"
)

type keyState struct {
	key        string
	cooldownAt time.Time // zero value means not cooling down
}

// Pool rotates through a set of keys, skipping any currently in
// cooldown, and wraps back to the front once all are exhausted.
type Pool struct {
	mu       sync.Mutex
	keys     []*keyState
	next     int
	cooldown time.Duration
}

// New builds a pool from raw key strings in a randomized starting
// order (the shuffle-based rotation spec.md §4.3 asks for), with the
// given per-key cooldown window applied on 429/quota failures.
func New(keys []string, cooldown time.Duration) *Pool {
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	shuffled := make([]string, len(keys))
	copy(shuffled, keys)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	states := make([]*keyState, 0, len(shuffled))
	for _, k := range shuffled {
		states = append(states, &keyState{key: k})
	}
	return &Pool{keys: states, cooldown: cooldown}
}

// Len reports how many keys the pool holds.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Acquire returns the next non-cooling-down key, or ("", false) if
// every key is currently in cooldown.
func (p *Pool) Acquire() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return "", false
	}
	now := time.Now()
	for i := 0; i < len(p.keys); i++ {
		idx := (p.next + i) % len(p.keys)
		ks := p.keys[idx]
		if ks.cooldownAt.IsZero() || now.After(ks.cooldownAt) {
			p.next = (idx + 1) % len(p.keys)
			return ks.key, true
		}
	}
	return "", false
}

// Cooldown puts key into cooldown for the pool's configured window,
// called after a 429 / quota-exceeded response.
func (p *Pool) Cooldown(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ks := range p.keys {
		if ks.key == key {
			ks.cooldownAt = time.Now().Add(p.cooldown)
			return
		}
	}
}

// AllCoolingDown reports whether every key is currently unavailable.
func (p *Pool) AllCoolingDown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return true
	}
	now := time.Now()
	for _, ks := range p.keys {
		if ks.cooldownAt.IsZero() || now.After(ks.cooldownAt) {
			return false
		}
	}
	return true
}
