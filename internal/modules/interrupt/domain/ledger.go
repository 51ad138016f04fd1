package domain

import "time"

const (
	MaxSnoozeCount = 2
	SnoozeDelay    = 30 * time.Minute
)

const (
	LedgerScopeKey    = "pendingInterruptsScope"
	LedgerLegacyKey   = "pendingInterruptsLegacy"
	LedgerMigratedKey = "pendingInterruptsMigrated" // session that absorbed the legacy list
	SnoozeScopeKey    = "snoozeCountsScope"
)

func LedgerKey(sessionID string) string {
	return "pendingInterrupts:" + sessionID
}

func SnoozeKey(sessionID string) string {
	return "snoozeCounts:" + sessionID
}

// AppendUnique appends ids not already present, keeping first-seen order.
func AppendUnique(list []string, ids ...string) []string {
	seen := make(map[string]struct{}, len(list)+len(ids))
	out := make([]string, 0, len(list)+len(ids))
	for _, id := range append(append([]string{}, list...), ids...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func Without(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Prune keeps the ids of stored, in order, that are valid interrupt
// questions and not yet answered.
func Prune(stored, valid []string, answered map[string]bool) []string {
	allowed := make(map[string]struct{}, len(valid))
	for _, id := range valid {
		allowed[id] = struct{}{}
	}
	out := make([]string, 0, len(stored))
	for _, id := range AppendUnique(nil, stored...) {
		if _, ok := allowed[id]; !ok {
			continue
		}
		if answered[id] {
			continue
		}
		out = append(out, id)
	}
	return out
}

func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
