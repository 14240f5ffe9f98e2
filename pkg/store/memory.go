package store

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process account store. It backs single-tenant deployments
// configured entirely from the environment, and tests.
type Memory struct {
	mu       sync.RWMutex
	byNumber map[string]Account
}

func NewMemory(accounts ...Account) *Memory {
	m := &Memory{byNumber: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		m.Put(a)
	}
	return m
}

func (m *Memory) Put(a Account) {
	number := strings.TrimSpace(a.TwilioNumber)
	if number == "" {
		return
	}
	m.mu.Lock()
	m.byNumber[number] = a
	m.mu.Unlock()
}

func (m *Memory) ByTwilioNumber(ctx context.Context, number string) (Account, error) {
	m.mu.RLock()
	a, ok := m.byNumber[strings.TrimSpace(number)]
	m.mu.RUnlock()
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}
