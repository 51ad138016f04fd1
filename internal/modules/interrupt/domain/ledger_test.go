package domain

import "testing"

func TestPruneKeepsLedgerOrderAndDropsAnsweredAndUnknown(t *testing.T) {
	t.Parallel()
	got := Prune(
		[]string{"q3", "ghost", "q1", "q2", "q3"},
		[]string{"q1", "q2", "q3"},
		map[string]bool{"q2": true},
	)
	if want := []string{"q3", "q1"}; !Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAppendUniqueAndWithout(t *testing.T) {
	t.Parallel()
	list := AppendUnique([]string{"a"}, "b", "a", "", "c")
	if want := []string{"a", "b", "c"}; !Equal(list, want) {
		t.Fatalf("expected %v, got %v", want, list)
	}
	if got := Without(list, "b"); !Equal(got, []string{"a", "c"}) {
		t.Fatalf("unexpected without result %v", got)
	}
	if got := Without(list, "zzz"); !Equal(got, list) {
		t.Fatalf("removing absent id must be a no-op, got %v", got)
	}
}
