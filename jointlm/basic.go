// Package jointlm is a finite-state n-gram language model over joint
// grapheme/phoneme units. A "word" of the model is a joint unit with
// surface form "G}P" (pipe-separated grapheme tokens, '}', pipe-separated
// phoneme tokens, or "_" for the empty phoneme side), plus the usual
// <s>/</s> sentence boundary sentinels.
package jointlm

import (
	"fmt"
	"io"

	"github.com/kho/word"
)

// StateId represents a language model state.
type StateId uint32

const (
	// STATE_NIL is an invalid state, used as a sentinel in the builder.
	STATE_NIL StateId = ^StateId(0)
	// _STATE_EMPTY is the zero-context state, always state 0.
	_STATE_EMPTY StateId = 0
	// _STATE_START is the state reached after consuming <s>, always state 1.
	_STATE_START StateId = 1
)

// Weight is the log-probability type used throughout the model, in
// whatever base the source ARPA file used (typically log10, following
// SRILM convention).
type Weight float32

// WEIGHT_LOG0 replaces -Inf, following SRILM's convention of treating
// weights at or below -99 as "unseen".
const WEIGHT_LOG0 Weight = -99

// textLog0 is the threshold below which a weight read from text is
// snapped to WEIGHT_LOG0.
const textLog0 Weight = -99

// StateWeight is a (destination state, transition weight) pair.
type StateWeight struct {
	State  StateId
	Weight Weight
}

// WordStateWeight is a (word, destination state, transition weight)
// triple, used when transitions need to be iterated rather than
// looked up.
type WordStateWeight struct {
	Word   word.Id
	State  StateId
	Weight Weight
}

// Model is the common interface of the two finite-state n-gram model
// backends (Hashed and Sorted). Callers that only need to query the
// model, rather than build or iterate it, should depend on this
// interface.
type Model interface {
	// Start returns the start state, i.e. the state with context <s>.
	// Callers should never explicitly query <s> itself, which has
	// undefined behavior under NextI.
	Start() StateId
	// NextI finds the next state reached from p consuming x. x must not
	// be the BOS or EOS id. Any x outside the vocabulary is treated as
	// OOV: the returned weight is WEIGHT_LOG0 and the returned state is
	// the empty-context state.
	NextI(p StateId, x word.Id) (q StateId, w Weight)
	// NextS is NextI by surface string.
	NextS(p StateId, s string) (q StateId, w Weight)
	// Final returns the weight of "consuming" </s> from p, i.e. the
	// weight that finishes scoring a whole sequence.
	Final(p StateId) Weight
	// Vocab returns the model's vocabulary along with the sentence
	// boundary symbols and their ids.
	Vocab() (vocab *word.Vocab, bos, eos string, bosId, eosId word.Id)
}

// IterableModel is a Model whose states and transitions can be walked,
// used for diagnostics (Graphviz) and tests.
type IterableModel interface {
	Model
	NumStates() int
	Transitions(p StateId) chan WordStateWeight
	BackOff(p StateId) (q StateId, w Weight)
}

// Graphviz writes the finite-state topology of m to w, for debugging.
func Graphviz(m IterableModel, w io.Writer) {
	vocab, _, _, _, _ := m.Vocab()
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "  // lexical transitions")
	for i := 0; i < m.NumStates(); i++ {
		p := StateId(i)
		for xqw := range m.Transitions(p) {
			fmt.Fprintf(w, "  %d -> %d [label=%q]\n", p, xqw.State, fmt.Sprintf("%s : %g", vocab.StringOf(xqw.Word), xqw.Weight))
		}
	}
	fmt.Fprintln(w, "  // back-off transitions")
	for i := 0; i < m.NumStates(); i++ {
		q, w2 := m.BackOff(StateId(i))
		fmt.Fprintf(w, "  %d -> %d [label=%q,style=dashed]\n", i, q, fmt.Sprintf("%g", w2))
	}
	fmt.Fprintln(w, "}")
}

// Kind identifies which on-disk backend a binary model file holds.
type Kind int

const (
	KindHashed Kind = iota
	KindSorted
)

const (
	magicHashed = "#jointlm.hash"
	magicSorted = "#jointlm.sort"
)
