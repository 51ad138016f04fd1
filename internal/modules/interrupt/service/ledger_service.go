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

type LedgerService struct {
	mu sync.Mutex
	kv interruptout.KVStore
}

func NewLedgerService(kv interruptout.KVStore) interruptin.Ledger {
	return &LedgerService{kv: kv}
}

// Load returns the pending ids of sessionID in firing order. Switching to a
// new session discards the previous session's ids. The first load of a
// session absorbs the unscoped legacy list once and clears it.
func (s *LedgerService) Load(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, sessionID)
}

func (s *LedgerService) Add(ctx context.Context, questionID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, id := range list {
		if id == questionID {
			return nil
		}
	}
	return writeList(ctx, s.kv, domain.LedgerKey(sessionID), append(list, questionID))
}

// AddLegacy records an id delivered without a session; the next session to
// load the ledger picks it up.
func (s *LedgerService) AddLegacy(ctx context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	legacy, err := readList(ctx, s.kv, domain.LedgerLegacyKey)
	if err != nil {
		return err
	}
	return writeList(ctx, s.kv, domain.LedgerLegacyKey, domain.AppendUnique(legacy, questionID))
}

func (s *LedgerService) Remove(ctx context.Context, questionID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	next := domain.Without(list, questionID)
	if len(next) == len(list) {
		return nil
	}
	return writeList(ctx, s.kv, domain.LedgerKey(sessionID), next)
}

func (s *LedgerService) Save(ctx context.Context, questionIDs []string, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureScope(ctx, sessionID); err != nil {
		return err
	}
	return writeList(ctx, s.kv, domain.LedgerKey(sessionID), domain.AppendUnique(nil, questionIDs...))
}

func (s *LedgerService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope, ok, err := s.kv.Get(ctx, domain.LedgerScopeKey)
	if err != nil {
		return err
	}
	keys := []string{domain.LedgerScopeKey, domain.LedgerLegacyKey, domain.LedgerMigratedKey}
	if ok {
		keys = append(keys, domain.LedgerKey(scope))
	}
	for _, key := range keys {
		if err := s.kv.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerService) load(ctx context.Context, sessionID string) ([]string, error) {
	if err := s.ensureScope(ctx, sessionID); err != nil {
		return nil, err
	}
	list, err := readList(ctx, s.kv, domain.LedgerKey(sessionID))
	if err != nil {
		return nil, err
	}
	migrated, _, err := s.kv.Get(ctx, domain.LedgerMigratedKey)
	if err != nil {
		return nil, err
	}
	if migrated == sessionID {
		return list, nil
	}
	legacy, err := readList(ctx, s.kv, domain.LedgerLegacyKey)
	if err != nil {
		return nil, err
	}
	merged := domain.AppendUnique(list, legacy...)
	if !domain.Equal(merged, list) {
		if err := writeList(ctx, s.kv, domain.LedgerKey(sessionID), merged); err != nil {
			return nil, err
		}
	}
	if err := s.kv.Remove(ctx, domain.LedgerLegacyKey); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, domain.LedgerMigratedKey, sessionID); err != nil {
		return nil, err
	}
	return merged, nil
}

// ensureScope tags the ledger with sessionID, dropping ids of any other session.
func (s *LedgerService) ensureScope(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("ledger: session id is required")
	}
	scope, ok, err := s.kv.Get(ctx, domain.LedgerScopeKey)
	if err != nil {
		return err
	}
	if ok && scope == sessionID {
		return nil
	}
	if ok {
		if err := s.kv.Remove(ctx, domain.LedgerKey(scope)); err != nil {
			return err
		}
	}
	if err := s.kv.Remove(ctx, domain.LedgerKey(sessionID)); err != nil {
		return err
	}
	return s.kv.Set(ctx, domain.LedgerScopeKey, sessionID)
}

func readList(ctx context.Context, kv interruptout.KVStore, key string) ([]string, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return []string{}, err
	}
	list := []string{}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return list, nil
}

func writeList(ctx context.Context, kv interruptout.KVStore, key string, list []string) error {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, string(b))
}
