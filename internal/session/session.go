// Package session tracks per-chat conversation state: which multi-step
// flow is active, the currencies toggled so far, and the currency awaiting
// an interval choice. State is in-memory only and is mutated exclusively
// by the inbound update loop.
package session

import (
	"sort"
	"sync"
)

// Flow identifies the active multi-step flow for a chat.
type Flow int

const (
	FlowIdle Flow = iota
	FlowMultiAdd
	FlowMultiRemove
	FlowMultiPrice
	FlowManualAdd
	FlowManualRemove
	FlowManualPrice
	FlowCustomInterval
)

type state struct {
	flow     Flow
	selected map[string]struct{}
	pending  string // currency awaiting an interval choice
}

// Manager holds conversation state keyed by chat id.
type Manager struct {
	mu    sync.Mutex
	chats map[int64]*state
}

func NewManager() *Manager {
	return &Manager{chats: make(map[int64]*state)}
}

func (m *Manager) get(chatID int64) *state {
	s, ok := m.chats[chatID]
	if !ok {
		s = &state{flow: FlowIdle}
		m.chats[chatID] = s
	}
	return s
}

// StartFlow activates a flow for the chat. Any previous flow and its
// selection are discarded so a new flow never inherits stale toggles.
func (m *Manager) StartFlow(chatID int64, f Flow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(chatID)
	s.flow = f
	s.selected = make(map[string]struct{})
}

// Flow returns the active flow for the chat (FlowIdle when none).
func (m *Manager) Flow(chatID int64) Flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(chatID).flow
}

// Toggle flips a currency in the chat's selection set. Toggling the same
// symbol twice restores the original set. A toggle with no active flow is
// ignored.
func (m *Manager) Toggle(chatID int64, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(chatID)
	if s.flow == FlowIdle || s.selected == nil {
		return
	}
	if _, ok := s.selected[symbol]; ok {
		delete(s.selected, symbol)
	} else {
		s.selected[symbol] = struct{}{}
	}
}

// Selected reports whether a symbol is currently toggled.
func (m *Manager) Selected(chatID int64, symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.get(chatID).selected[symbol]
	return ok
}

// Selection returns the toggled symbols in sorted order.
func (m *Manager) Selection(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(chatID)
	out := make([]string, 0, len(s.selected))
	for sym := range s.selected {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// SetPending remembers the currency whose notification interval is being
// chosen. It survives the transition into FlowCustomInterval.
func (m *Manager) SetPending(chatID int64, currency string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(chatID).pending = currency
}

// Pending returns the currency awaiting an interval choice, if any.
func (m *Manager) Pending(chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(chatID).pending
}

// EndFlow resets the chat to idle and clears the selection and pending
// currency. Every exit path of a flow (done, cancel, error) must end here.
func (m *Manager) EndFlow(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, chatID)
}
