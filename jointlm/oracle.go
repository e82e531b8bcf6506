package jointlm

import "github.com/kho/word"

// Oracle adapts a jointlm Model (Hashed or Sorted, stateful and
// FST-shaped) into the stateless (wid, history) -> log-prob oracle the
// decode package's beam search consumes. It deliberately exposes only
// plain ints and floats, not jointlm's own StateId/WordId/Weight
// types, so decode has no import-time dependency on this package: the
// two are connected only by decode.Model's method set.
type Oracle struct {
	model Model
	vocab *word.Vocab
}

// NewOracle wraps m for use as a decode.Model.
func NewOracle(m Model) *Oracle {
	vocab, _, _, _, _ := m.Vocab()
	return &Oracle{model: m, vocab: vocab}
}

// VocabularySize returns the number of joint units and sentinels in
// the model's vocabulary.
func (o *Oracle) VocabularySize() int {
	return int(o.vocab.Bound())
}

// Surface returns the surface string ("G}P", "<s>" or "</s>") for wid.
func (o *Oracle) Surface(wid int) string {
	return o.vocab.StringOf(word.Id(wid))
}

// WordID returns the id of token, or word.NIL's int value if token is
// not in the vocabulary.
func (o *Oracle) WordID(token string) int {
	return int(o.vocab.IdOf(token))
}

// ConditionalLogProb returns the model's log-probability of wid given
// history, a most-recent-first context of length historyLen whose
// oldest element is always the begin-of-sentence id. It replays
// history oldest-to-newest through the model's finite-state
// transitions, starting from Start() (which already accounts for the
// begin-of-sentence symbol), then queries the transition for wid.
func (o *Oracle) ConditionalLogProb(wid int, history []int, historyLen int) float64 {
	p := o.model.Start()
	for i := historyLen - 2; i >= 0; i-- {
		p, _ = o.model.NextI(p, word.Id(history[i]))
	}
	_, w := o.model.NextI(p, word.Id(wid))
	return float64(w)
}
