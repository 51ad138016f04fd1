package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"dansprotocol/internal/modules/interrupt/domain"
	interruptin "dansprotocol/internal/modules/interrupt/port/in"
	interruptout "dansprotocol/internal/modules/interrupt/port/out"
)

type SnoozeService struct {
	mu sync.Mutex
	kv interruptout.KVStore
}

func NewSnoozeService(kv interruptout.KVStore) interruptin.Snooze {
	return &SnoozeService{kv: kv}
}

func (s *SnoozeService) Count(ctx context.Context, questionID, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts, err := s.counts(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return counts[questionID], nil
}

func (s *SnoozeService) Increment(ctx context.Context, questionID, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts, err := s.counts(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	counts[questionID]++
	if err := s.write(ctx, sessionID, counts); err != nil {
		return 0, err
	}
	return counts[questionID], nil
}

func (s *SnoozeService) HasReachedMax(ctx context.Context, questionID, sessionID string) (bool, error) {
	count, err := s.Count(ctx, questionID, sessionID)
	if err != nil {
		return false, err
	}
	return count >= domain.MaxSnoozeCount, nil
}

func (s *SnoozeService) Reset(ctx context.Context, questionID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts, err := s.counts(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, ok := counts[questionID]; !ok {
		return nil
	}
	delete(counts, questionID)
	return s.write(ctx, sessionID, counts)
}

func (s *SnoozeService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope, ok, err := s.kv.Get(ctx, domain.SnoozeScopeKey)
	if err != nil {
		return err
	}
	if ok {
		if err := s.kv.Remove(ctx, domain.SnoozeKey(scope)); err != nil {
			return err
		}
	}
	return s.kv.Remove(ctx, domain.SnoozeScopeKey)
}

// counts loads the counters of sessionID; a different stored scope resets them.
func (s *SnoozeService) counts(ctx context.Context, sessionID string) (map[string]int, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("snooze: session id is required")
	}
	scope, ok, err := s.kv.Get(ctx, domain.SnoozeScopeKey)
	if err != nil {
		return nil, err
	}
	if !ok || scope != sessionID {
		if ok {
			if err := s.kv.Remove(ctx, domain.SnoozeKey(scope)); err != nil {
				return nil, err
			}
		}
		if err := s.kv.Remove(ctx, domain.SnoozeKey(sessionID)); err != nil {
			return nil, err
		}
		if err := s.kv.Set(ctx, domain.SnoozeScopeKey, sessionID); err != nil {
			return nil, err
		}
		return map[string]int{}, nil
	}
	raw, ok, err := s.kv.Get(ctx, domain.SnoozeKey(sessionID))
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	if !ok {
		return counts, nil
	}
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return nil, fmt.Errorf("decode snooze counts: %w", err)
	}
	return counts, nil
}

func (s *SnoozeService) write(ctx context.Context, sessionID string, counts map[string]int) error {
	b, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode snooze counts: %w", err)
	}
	return s.kv.Set(ctx, domain.SnoozeKey(sessionID), string(b))
}
