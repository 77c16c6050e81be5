package useragent

import "testing"

func TestNextRoundRobin(t *testing.T) {
	t.Parallel()

	r := NewRotator([]string{"a", "b", "c"})
	got := []string{r.Next(), r.Next(), r.Next(), r.Next()}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDefaultAgents(t *testing.T) {
	t.Parallel()

	r := NewRotator(nil)
	seen := make(map[string]bool)
	for i := 0; i < len(defaultAgents); i++ {
		seen[r.Next()] = true
	}
	if len(seen) != len(defaultAgents) {
		t.Fatalf("expected %d distinct agents, got %d", len(defaultAgents), len(seen))
	}
}
