package jointlm

import (
	"testing"

	"github.com/kho/word"
)

func TestXqwMapFindOrInsertGrows(t *testing.T) {
	m := newXqwMap(2, 0.8)
	const n = 100
	for i := 0; i < n; i++ {
		*m.FindOrInsert(word.Id(i)) = StateWeight{StateId(i), Weight(-float64(i))}
	}
	if m.Size() != n {
		t.Fatalf("Size() = %d; want %d", m.Size(), n)
	}
	for i := 0; i < n; i++ {
		sw := m.Find(word.Id(i))
		if sw == nil {
			t.Fatalf("Find(%d) = nil after insertion", i)
		}
		if sw.State != StateId(i) {
			t.Errorf("Find(%d).State = %d; want %d", i, sw.State, i)
		}
	}
	if m.Find(word.Id(n + 1)) != nil {
		t.Errorf("Find of an absent key returned non-nil")
	}
}

func TestXqwMapFindOrInsertIsIdempotent(t *testing.T) {
	m := newXqwMap(4, 0.8)
	a := m.FindOrInsert(word.Id(7))
	a.State = 3
	b := m.FindOrInsert(word.Id(7))
	if b.State != 3 {
		t.Errorf("second FindOrInsert overwrote the first: got state %d", b.State)
	}
	if m.Size() != 1 {
		t.Errorf("Size() = %d; want 1", m.Size())
	}
}

func TestXqwBucketsRangeSkipsEmpty(t *testing.T) {
	b := xqwInitBuckets(8)
	*b.nextAvailable(word.Id(1)) = xqwEntry{Key: 1, Value: StateWeight{State: 5}}
	*b.nextAvailable(word.Id(2)) = xqwEntry{Key: 2, Value: StateWeight{State: 6}}
	seen := map[word.Id]StateId{}
	for e := range b.Range() {
		seen[e.Key] = e.Value.State
	}
	if len(seen) != 2 || seen[1] != 5 || seen[2] != 6 {
		t.Errorf("Range() = %v; want {1:5, 2:6}", seen)
	}
}
