package store

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// In-process key-value store. Watchers are notified synchronously on Set,
// dropping the event for a watcher whose buffer is full.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers map[string][]chan string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   map[string]string{},
		watchers: map[string][]chan string{},
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("get kv: key must not be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("insert kv: key must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	for _, w := range s.watchers[key] {
		select {
		case w <- value:
		default:
		}
	}

	return nil
}

func (s *MemoryStore) Watch(ctx context.Context, key string) (<-chan string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("watch kv: key must not be empty")
	}

	ch := make(chan string, 4)

	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()

		ws := s.watchers[key]
		for i, w := range ws {
			if w == ch {
				s.watchers[key] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}
