package decode

import "testing"

// fakeModel is a small, self-contained Model used to exercise the
// decode package without any dependency on the jointlm package — the
// same duck-typed boundary a real caller crosses. Units are unigram by
// default; bigram lets a test override the score of a specific
// (previous wid, wid) pair to exercise history-sensitive scoring.
type fakeModel struct {
	surfaces []string
	unigram  []float64
	bigram   map[[2]int]float64
}

func (m *fakeModel) VocabularySize() int    { return len(m.surfaces) }
func (m *fakeModel) Surface(wid int) string { return m.surfaces[wid] }

func (m *fakeModel) WordID(token string) int {
	for i, s := range m.surfaces {
		if s == token {
			return i
		}
	}
	return -1
}

func (m *fakeModel) ConditionalLogProb(wid int, history []int, historyLen int) float64 {
	if m.bigram != nil && historyLen > 0 {
		if lp, ok := m.bigram[[2]int{history[0], wid}]; ok {
			return lp
		}
	}
	return m.unigram[wid]
}

func newCatDogModel() *fakeModel {
	return &fakeModel{
		surfaces: []string{
			"<s>", "</s>",
			"c}K", "a}AE", "t}T",
			"d}D", "o}AO", "g}G",
		},
		unigram: []float64{0, 0, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1},
	}
}

func TestG2PSimpleWord(t *testing.T) {
	m := newCatDogModel()
	got, ok := G2P(m, "cat", 100)
	if !ok || got != "K AE T" {
		t.Fatalf("G2P(cat) = (%q, %v); want (\"K AE T\", true)", got, ok)
	}
}

func TestG2PAnotherWord(t *testing.T) {
	m := newCatDogModel()
	got, ok := G2P(m, "dog", 100)
	if !ok || got != "D AO G" {
		t.Fatalf("G2P(dog) = (%q, %v); want (\"D AO G\", true)", got, ok)
	}
}

func TestG2PEmptyGrapheme(t *testing.T) {
	m := newCatDogModel()
	if got, ok := G2P(m, "", 100); ok || got != "" {
		t.Fatalf("G2P(\"\") = (%q, %v); want (\"\", false)", got, ok)
	}
}

func TestG2PNoCoveringUnit(t *testing.T) {
	m := newCatDogModel()
	if got, ok := G2P(m, "zzz", 100); ok || got != "" {
		t.Fatalf("G2P(zzz) = (%q, %v); want (\"\", false)", got, ok)
	}
}

func TestG2PIdempotent(t *testing.T) {
	m := newCatDogModel()
	first, ok1 := G2P(m, "cat", 100)
	second, ok2 := G2P(m, "cat", 100)
	if ok1 != ok2 || first != second {
		t.Fatalf("G2P not idempotent: (%q,%v) vs (%q,%v)", first, ok1, second, ok2)
	}
}

func TestG2PPartialCoverageFails(t *testing.T) {
	// "cab" has units for c and a but nothing covering b, so no complete
	// hypothesis can ever reach the end-of-word beam.
	m := newCatDogModel()
	if got, ok := G2P(m, "cab", 100); ok || got != "" {
		t.Fatalf("G2P(cab) = (%q, %v); want (\"\", false)", got, ok)
	}
}

func TestG2PPrefersLongerUnitWhenBetterScoring(t *testing.T) {
	m := &fakeModel{
		surfaces: []string{"<s>", "</s>", "c}K", "a}AE", "ca}KA"},
		unigram:  []float64{0, 0, -1, -1, -0.1},
	}
	got, ok := G2P(m, "ca", 100)
	if !ok || got != "KA" {
		t.Fatalf("G2P(ca) = (%q, %v); want (\"KA\", true)", got, ok)
	}
}

// TestBeamWidthNeverHurtsScore exercises the monotonic-beam-width
// property: a decoy unigram-best unit at the first position starves out
// a true predecessor when the beam can only hold one hypothesis, giving
// a strictly worse total score than a wider beam that can keep both
// candidates alive long enough for the bigram term to discriminate
// between them.
func TestBeamWidthNeverHurtsScore(t *testing.T) {
	const (
		sos = 0
		eos = 1
		a1  = 2 // "a}A1": decent unigram, good continuation to b
		a2  = 3 // "a}A2": better unigram in isolation, bad continuation to b
		b   = 4 // "b}B"
	)
	m := &fakeModel{
		surfaces: []string{"<s>", "</s>", "a}A1", "a}A2", "b}B"},
		unigram:  []float64{0, 0, -0.1, -0.05, -0.1},
		bigram: map[[2]int]float64{
			{a1, b}: -0.1,
			{a2, b}: -5,
		},
	}

	fNarrow, leafNarrow, okNarrow := NewDecoder(m).decode("ab", 1)
	fWide, leafWide, okWide := NewDecoder(m).decode("ab", 2)

	if !okNarrow || !okWide {
		t.Fatalf("expected both beam widths to find a path: narrow=%v wide=%v", okNarrow, okWide)
	}

	scoreNarrow := fNarrow.get(leafNarrow).score
	scoreWide := fWide.get(leafWide).score

	if scoreWide < scoreNarrow {
		t.Fatalf("widening the beam made the result worse: narrow=%v wide=%v", scoreNarrow, scoreWide)
	}
	if scoreWide == scoreNarrow {
		t.Fatalf("expected the wider beam to strictly improve on a beam-1 starvation case")
	}
}
