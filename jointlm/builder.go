package jointlm

import (
	"fmt"
	"io"
	"sort"

	"github.com/golang/glog"
	"github.com/kho/word"
)

// Builder accumulates n-gram entries (as typically estimated by SRILM
// over a joint-unit corpus) and dumps them into either finite-state
// backend. Must be constructed with NewBuilder.
type Builder struct {
	vocab        *word.Vocab
	bos, eos     string
	bosId, eosId word.Id
	transitions  []*xqwMap
	backoff      []StateWeight
}

// NewBuilder constructs a new Builder. vocab is the base vocabulary to
// seed the model with; it may be nil, in which case a vocabulary with
// ["<s>", "</s>"] as the first two words is created and used as bos,
// eos. Otherwise bos and eos name the sentence boundary symbols within
// vocab. vocab is copied, never modified in place.
func NewBuilder(vocab *word.Vocab, bos, eos string) *Builder {
	var b Builder
	if vocab == nil {
		vocab = word.NewVocab([]string{"<s>", "</s>"})
		bos, eos = "<s>", "</s>"
	} else {
		vocab = vocab.Copy()
	}
	b.vocab = vocab
	if bos == eos {
		glog.Fatalf("begin-of-sentence and end-of-sentence are the same word %q", bos)
	}
	b.bos, b.eos = bos, eos
	if b.bosId = vocab.IdOf(bos); b.bosId == word.NIL {
		glog.Fatalf("%q not in vocabulary", bos)
	}
	if b.eosId = vocab.IdOf(eos); b.eosId == word.NIL {
		glog.Fatalf("%q not in vocabulary", eos)
	}
	b.newState() // _STATE_EMPTY
	b.newState() // _STATE_START
	b.setTransition(_STATE_EMPTY, b.bosId, _STATE_START, 0)
	return &b
}

// AddNgram adds one n-gram entry: the given word occurring after
// context, with the given conditional weight and (if word starts a
// new context) back-off weight. context must be added in increasing
// order, i.e. every prefix of context must have been added as a
// shorter n-gram's context already (standard ARPA file order).
// Weights at or below -99 are snapped to WEIGHT_LOG0.
func (b *Builder) AddNgram(context []string, w string, weight, backOff Weight) {
	if weight <= textLog0 {
		weight = WEIGHT_LOG0
	}
	if backOff <= textLog0 {
		backOff = WEIGHT_LOG0
	}
	if len(context) > 0 {
		if context[0] == b.eos {
			glog.Fatalf("end-of-sentence in context %q", context)
		}
		for _, c := range context[1:] {
			if c == b.bos {
				glog.Fatalf("begin-of-sentence not at the start of context %q", context)
			}
			if c == b.eos {
				glog.Fatalf("end-of-sentence in context %q", context)
			}
		}
	}
	if len(context) > 0 && w == b.bos && weight > -10 {
		glog.Warningf("non-unigram ending in %q has weight %g (expected -inf or absent)", w, weight)
	}
	if w == b.eos && backOff != 0 {
		glog.Warningf("non-zero back-off %g for an n-gram ending in %q", backOff, w)
	}

	p := b.findState(_STATE_EMPTY, context)
	x := b.vocab.IdOrAdd(w)
	q := STATE_NIL
	if x != b.eosId {
		q = b.findNextState(p, x)
		b.backoff[q].Weight = backOff
	}
	b.setTransition(p, x, q, weight)
}

func (b *Builder) newState() StateId {
	s := StateId(len(b.backoff))
	b.transitions = append(b.transitions, nil) // lazily allocated
	b.backoff = append(b.backoff, StateWeight{STATE_NIL, 0})
	return s
}

func (b *Builder) setTransition(p StateId, x word.Id, q StateId, w Weight) {
	if b.transitions[p] == nil {
		b.transitions[p] = newXqwMap(0, 0)
	}
	*b.transitions[p].FindOrInsert(x) = StateWeight{q, w}
}

func (b *Builder) findNextState(p StateId, x word.Id) StateId {
	if b.transitions[p] == nil {
		b.transitions[p] = newXqwMap(0, 0)
	}
	if qw := b.transitions[p].Find(x); qw != nil {
		return qw.State
	}
	q := b.newState()
	b.setTransition(p, x, q, 0)
	return q
}

func (b *Builder) findState(p StateId, ws []string) StateId {
	for _, w := range ws {
		p = b.findNextState(p, b.vocab.IdOrAdd(w))
	}
	return p
}

// DumpHashed finalizes the builder into a Hashed model. scale is the
// initial bucket-count multiplier (>1 speeds up lookups at the cost of
// memory; <=1 uses a default of 1.5). Subsequent calls to AddNgram on
// b are undefined.
func (b *Builder) DumpHashed(scale float64) *Hashed {
	b.link()
	oldToNew, numStates := b.prune()
	if scale <= 1 {
		scale = 1.5
	}
	var m Hashed
	m.vocab, b.vocab = b.vocab, nil
	m.bos, m.eos, m.bosId, m.eosId = b.bos, b.eos, b.bosId, b.eosId
	m.transitions = make([]xqwBuckets, numStates)
	for o, n := range oldToNew {
		if n == STATE_NIL {
			continue
		}
		next := b.transitions[o]
		if next == nil {
			next = newXqwMap(0, 0) // only possible for _STATE_START
		}
		next.Resize(int(float64(next.Size()) * scale))
		b.transitions[o] = nil
		backoff := b.backoff[o]
		if backoff.State != STATE_NIL {
			backoff.State = oldToNew[backoff.State]
		}
		buckets := next.buckets
		for j, e := range buckets {
			if e.Key != word.NIL {
				e.Value = remapState(e.Value, oldToNew, b.backoff)
			} else {
				e.Value = backoff
			}
			buckets[j] = e
		}
		m.transitions[n] = buckets
	}
	b.backoff, b.transitions = nil, nil
	return &m
}

// DumpSorted finalizes the builder into a Sorted model. Subsequent
// calls to AddNgram on b are undefined.
func (b *Builder) DumpSorted() *Sorted {
	b.link()
	oldToNew, numStates := b.prune()
	var m Sorted
	m.vocab, b.vocab = b.vocab, nil
	m.bos, m.eos, m.bosId, m.eosId = b.bos, b.eos, b.bosId, b.eosId
	m.transitions = make([][]WordStateWeight, numStates)
	for o, n := range oldToNew {
		if n == STATE_NIL {
			continue
		}
		var next []WordStateWeight
		if b.transitions[o] == nil {
			next = make([]WordStateWeight, 0, 1)
		} else {
			next = make([]WordStateWeight, 0, b.transitions[o].Size()+1)
			for e := range b.transitions[o].Range() {
				sw := remapState(e.Value, oldToNew, b.backoff)
				next = append(next, WordStateWeight{e.Key, sw.State, sw.Weight})
			}
		}
		backoff := b.backoff[o]
		if backoff.State != STATE_NIL {
			backoff.State = oldToNew[backoff.State]
		}
		next = append(next, WordStateWeight{word.NIL, backoff.State, backoff.Weight})
		sort.Sort(byWord(next))
		m.transitions[n] = next
		b.transitions[o] = nil
	}
	b.backoff, b.transitions = nil, nil
	return &m
}

func remapState(sw StateWeight, oldToNew []StateId, backoff []StateWeight) StateWeight {
	if sw.State == STATE_NIL {
		return sw
	}
	if n := oldToNew[sw.State]; n != STATE_NIL {
		sw.State = n
		return sw
	}
	// sw.State was pruned away; its own back-off takes over.
	bo := backoff[sw.State]
	sw.State = oldToNew[bo.State]
	sw.Weight += bo.Weight
	return sw
}

// link resolves each state's back-off to the closest ancestor (by
// back-off chain) that has at least one lexical transition.
func (b *Builder) link() {
	for e := range b.transitions[_STATE_EMPTY].Range() {
		if e.Value.State != STATE_NIL {
			b.backoff[e.Value.State].State = _STATE_EMPTY
		}
	}
	for i, es := range b.transitions[_STATE_START+1:] {
		if es == nil {
			continue
		}
		p := _STATE_START + 1 + StateId(i)
		for e := range es.Range() {
			if e.Value.State != STATE_NIL {
				b.linkTransition(p, e.Key, e.Value.State)
			}
		}
	}
}

func (b *Builder) linkTransition(p StateId, x word.Id, q StateId) (StateId, Weight) {
	qBack := &b.backoff[q]
	if qBack.State == STATE_NIL {
		pBack := b.backoff[p].State
		qwBack := b.transitions[pBack].Find(x)
		for qwBack == nil && pBack != _STATE_EMPTY {
			pBack = b.backoff[pBack].State
			qwBack = b.transitions[pBack].Find(x)
		}
		if qwBack != nil {
			qBackState, w := b.linkTransition(pBack, x, qwBack.State)
			if b.transitions[qwBack.State] == nil {
				qBack.State = qBackState
				qBack.Weight += w
			} else {
				qBack.State = qwBack.State
			}
		} else {
			qBack.State = _STATE_EMPTY
		}
	}
	return qBack.State, qBack.Weight
}

// prune drops states with no out-going lexical transition, which are
// pure pass-throughs to their back-off. Returns a mapping from old to
// new StateId (STATE_NIL if pruned) and the post-prune state count.
func (b *Builder) prune() (oldToNew []StateId, numStates int) {
	oldToNew = make([]StateId, len(b.backoff))
	oldToNew[_STATE_EMPTY] = _STATE_EMPTY
	oldToNew[_STATE_START] = _STATE_START
	next := StateId(_STATE_START + 1)
	for i, es := range b.transitions[_STATE_START+1:] {
		o := _STATE_START + 1 + StateId(i)
		if es != nil {
			oldToNew[o] = next
			next++
		} else {
			oldToNew[o] = STATE_NIL
		}
	}
	if glog.V(1) {
		glog.Infof("pruned %d states to %d", len(b.backoff), next)
	}
	return oldToNew, int(next)
}

// Graphviz writes the builder's current (pre-Dump) topology to w, for
// debugging an in-progress build.
func (b *Builder) Graphviz(w io.Writer) {
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "  // lexical transitions")
	for p, es := range b.transitions {
		if es == nil {
			continue
		}
		for e := range es.Range() {
			fmt.Fprintf(w, "  %d -> %d [label=%q]\n", p, e.Value.State, fmt.Sprintf("%s : %g", b.vocab.StringOf(e.Key), e.Value.Weight))
		}
	}
	fmt.Fprintln(w, "  // back-off transitions")
	for i, s := range b.backoff {
		fmt.Fprintf(w, "  %d -> %d [label=%q,style=dashed]\n", i, s.State, fmt.Sprintf("%g", s.Weight))
	}
	fmt.Fprintln(w, "}")
}
