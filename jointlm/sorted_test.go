package jointlm

import (
	"bytes"
	"testing"
)

func TestSortedSimple(t *testing.T) {
	sortedTest(simpleTrigramLM, simpleTrigramSents, t)
}

func TestSortedSparse(t *testing.T) {
	sortedTest(sparseFivegramLM, sparseFivegramSents, t)
}

func TestSortedTrickyBackOff(t *testing.T) {
	sortedTest(trickyBackOffLM, trickyBackOffSents, t)
}

func sortedTest(lm []ngram, sents [][]token, t *testing.T) {
	builder := readyBuilder(lm)
	model := builder.DumpSorted()

	var buf bytes.Buffer
	Graphviz(model, &buf)
	t.Log(buf.String())

	if err := checkModel(model); err != nil {
		t.Errorf("check model failed with error %v", err)
	}
	sentTest(model, sents, t)
}

func TestSortedRoundTripBinary(t *testing.T) {
	builder := readyBuilder(simpleTrigramLM)
	model := builder.DumpSorted()

	data, err := model.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var roundTripped Sorted
	if err := roundTripped.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	sentTest(&roundTripped, simpleTrigramSents, t)
}

func TestSortedOOVBacksOffToEmpty(t *testing.T) {
	builder := readyBuilder(simpleTrigramLM)
	model := builder.DumpSorted()

	p, w := model.NextS(model.Start(), "z}Z")
	if w != WEIGHT_LOG0 {
		t.Errorf("OOV weight = %g; want %g", w, WEIGHT_LOG0)
	}
	if p != _STATE_EMPTY {
		t.Errorf("OOV next state = %d; want empty state %d", p, _STATE_EMPTY)
	}
}

func TestHashedAndSortedAgree(t *testing.T) {
	for _, lm := range [][]ngram{simpleTrigramLM, sparseFivegramLM, trickyBackOffLM} {
		hashed := readyBuilder(lm).DumpHashed(0)
		sorted := readyBuilder(lm).DumpSorted()
		if hashed.NumStates() != sorted.NumStates() {
			t.Errorf("state count mismatch: hashed=%d sorted=%d", hashed.NumStates(), sorted.NumStates())
		}
	}
}
