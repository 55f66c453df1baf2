package ids

import (
	"sync"
	"testing"
)

func TestGenerateUniqueUnderConcurrency(t *testing.T) {
	const perG = 500
	const goroutines = 8

	var mu sync.Mutex
	seen := make(map[int64]bool, perG*goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perG)
			for i := 0; i < perG; i++ {
				local = append(local, Generate())
			}
			mu.Lock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != perG*goroutines {
		t.Fatalf("generated %d unique ids, want %d", len(seen), perG*goroutines)
	}
}

func TestGenerateMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 1000; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("id not increasing: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestNodeIDFromName(t *testing.T) {
	a := NodeIDFromName("gateway_1")
	b := NodeIDFromName("gateway_2")

	if a != NodeIDFromName("gateway_1") {
		t.Fatal("derivation must be deterministic")
	}
	if a < 0 || a > 1023 || b < 0 || b > 1023 {
		t.Fatalf("node ids out of range: %d %d", a, b)
	}
	// fnv32a("gateway_1")%1024=985, ("gateway_2")%1024=800
	if a != 985 || b != 800 {
		t.Fatalf("unexpected node ids: %d %d", a, b)
	}

	SetNodeID(NodeIDFromName("gateway_1"))
	id := Generate()
	if node := (id >> 12) & 0x3FF; node != 985 {
		t.Fatalf("node bits = %d, want 985", node)
	}
	SetNodeID(1)
}

func TestSetNodeIDClampsRange(t *testing.T) {
	SetNodeID(2048) // 超界回落到默认
	id := Generate()
	if node := (id >> 12) & 0x3FF; node != 1 {
		t.Fatalf("node bits = %d, want 1", node)
	}
	SetNodeID(7)
	id = Generate()
	if node := (id >> 12) & 0x3FF; node != 7 {
		t.Fatalf("node bits = %d, want 7", node)
	}
	SetNodeID(1)
}
