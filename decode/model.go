// Package decode implements the grapheme-to-phoneme beam search: a
// left-to-right dynamic-programming beam over grapheme prefix
// positions, backed by bounded per-position priority queues of
// back-pointer hypotheses scored by an n-gram language model over
// joint grapheme/phoneme units.
//
// The package treats the language model as an opaque oracle (Model):
// it never constructs or loads one itself. github.com/kho/g2p/jointlm
// provides a concrete implementation via jointlm.Oracle.
package decode

// Score is a cumulative conditional log-probability, in whatever base
// the Model uses. Widened to float64 so that summing per-word scores
// across the length of the input grapheme cannot lose precision.
type Score float64

// Model is the language model oracle the beam decoder queries. It
// exposes exactly the primitives spec'd for the search: vocabulary
// size, surface/id lookup, and conditional log-probability.
type Model interface {
	// VocabularySize returns the number of joint units in the model's
	// vocabulary, including the <s>/</s> sentinels.
	VocabularySize() int
	// Surface returns the surface string ("G}P", "<s>" or "</s>") of wid.
	Surface(wid int) string
	// WordID returns the id of a vocabulary token, used to resolve the
	// <s>/</s> sentinels by name.
	WordID(token string) int
	// ConditionalLogProb returns the model's log-probability of wid
	// given history, a most-recent-first context of length historyLen.
	ConditionalLogProb(wid int, history []int, historyLen int) float64
}
