// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"strconv"
	"sync"

	"mitigated.example.com/engine/internal/eventmodel"
)

// accumulatorKey identifies one in-flight message-adapter session (§3
// Lifecycle, §5 "process-wide accumulator attacks[(id,severity,type)]").
type accumulatorKey struct {
	id       string
	severity eventmodel.Severity
	attype   string
}

// Accumulator is a component instance — not a module-level variable, per
// the Design Note in §9 — threaded through the message adapter that owns
// it. The file adapter never touches it (§5: "disjoint adapters of a
// single attacks map").
type Accumulator struct {
	mu    sync.Mutex
	cache map[accumulatorKey]*eventmodel.Attack
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{cache: make(map[accumulatorKey]*eventmodel.Attack)}
}

// Start begins accumulation for a session; returns false if a start
// already exists for this key (duplicate start, §4.1: "logged and ignored").
func (a *Accumulator) Start(id string, severity eventmodel.Severity, attype string) (*eventmodel.Attack, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := accumulatorKey{id, severity, attype}
	if _, exists := a.cache[key]; exists {
		return nil, false
	}
	var idPtr *int64
	if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
		idPtr = &parsed
	}
	attack := eventmodel.NewAttack(severity, attype, idPtr, id)
	a.cache[key] = attack
	return attack, true
}

// Append adds an event to an already-started session; returns false if no
// start exists for this key (§4.1: "events without start ... are logged
// and dropped").
func (a *Accumulator) Append(id string, severity eventmodel.Severity, attype string, ev eventmodel.AttackEvent) bool {
	a.mu.Lock()
	attack, ok := a.cache[accumulatorKey{id, severity, attype}]
	a.mu.Unlock()
	if !ok {
		return false
	}
	attack.AppendEvent(ev)
	return true
}

// Stop closes and removes a session, returning its frozen Attack. Returns
// false if no start exists for this key (§4.1: "stop without start ...
// logged and dropped").
func (a *Accumulator) Stop(id string, severity eventmodel.Severity, attype string) (*eventmodel.Attack, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := accumulatorKey{id, severity, attype}
	attack, ok := a.cache[key]
	if !ok {
		return nil, false
	}
	delete(a.cache, key)
	attack.Freeze()
	return attack, true
}
