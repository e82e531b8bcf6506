package jointlm

// Common routines and fixtures for testing a joint-unit language
// model (still plain strings to the model itself; the "G}P" structure
// only matters one layer up, in the decode package).

import (
	"errors"
	"strings"
	"testing"
)

type ngram struct {
	Context, Word   string
	Weight, BackOff Weight
}

func (n ngram) Params() ([]string, string, Weight, Weight) {
	var context []string
	if n.Context != "" {
		context = strings.Fields(n.Context)
	}
	return context, n.Word, n.Weight, n.BackOff
}

type token struct {
	Word   string
	Weight Weight
}

var simpleTrigramLM = []ngram{
	{"", "<s>", WEIGHT_LOG0, -1},
	{"", "</s>", -0.01, 0},
	{"", "c}K", -2, -1},
	{"", "a}AE", -4, -2},
	{"<s>", "c}K", -1, -0.5},
	{"c}K", "a}AE", -2, -1},
	{"<s> c}K", "a}AE", -1.5, 0},
	{"c}K a}AE", "</s>", -0.001, 0},
}

var simpleTrigramSents = [][]token{
	{{"c}K", -1}, {"</s>", -0.5 - 1 - 0.01}},
	{{"c}K", -1}, {"a}AE", -1.5}, {"</s>", -0.001}},
	{{"c}K", -1}, {"a}AE", -1.5}, {"c}K", -1 - 2 - 2}, {"a}AE", -2}, {"</s>", -0.001}},
	{{"c}K", -1}, {"a}AE", -1.5}, {"t}T", WEIGHT_LOG0}, {"</s>", -0.01}},
}

var sparseFivegramLM = []ngram{
	{"", "<s>", WEIGHT_LOG0, -1},
	{"", "</s>", 0.1, 0},
	{"<s> c}K c}K c}K", "c}K", -1, -2},
	{"c}K c}K", "c}K", -3, -4},
}

var sparseFivegramSents = [][]token{
	{{"c}K", 0}, {"</s>", 0.1}},
	{{"c}K", 0}, {"c}K", 0}, {"</s>", 0.1}},
	{{"c}K", 0}, {"c}K", 0}, {"c}K", 0}, {"</s>", -4 + 0.1}},
	{{"c}K", 0}, {"c}K", 0}, {"c}K", 0}, {"c}K", -1}, {"</s>", -2 - 4 + 0.1}},
}

var trickyBackOffLM = []ngram{
	{"", "<s>", 0, -1},
	{"", "</s>", 0.1, 0},
	{"a}AE b}B c}K", "d}D", -1, -2},
	{"b}B c}K", "e}E", -4, 1},
	{"c}K", "d}D", 0, -3},
}

var trickyBackOffSents = [][]token{
	{{"</s>", -1 + 0.1}},
	{{"a}AE", -1}, {"b}B", 0}, {"c}K", 0}, {"d}D", -1}, {"</s>", -2 - 3 + 0.1}},
	{{"a}AE", -1}, {"b}B", 0}, {"c}K", 0}, {"e}E", -4}, {"</s>", 1 + 0.1}},
}

const floatTol = 1e-5

func readyBuilder(lm []ngram) *Builder {
	builder := NewBuilder(nil, "", "")
	for _, i := range lm {
		c, x, w, b := i.Params()
		builder.AddNgram(c, x, w, b)
	}
	return builder
}

func sentTest(model Model, sents [][]token, t *testing.T) {
	for _, i := range sents {
		var w0, w1 Weight
		var ws []Weight
		p := model.Start()
		for _, x := range i {
			var w Weight
			if x.Word != "</s>" {
				p, w = model.NextS(p, x.Word)
			} else {
				w = model.Final(p)
			}
			w0 += x.Weight
			w1 += w
			ws = append(ws, w)
		}
		if float64(w0-w1) >= floatTol || float64(w1-w0) >= floatTol {
			t.Errorf("expected total weight = %g; got %g\nsent: %v\nweights: %v", w0, w1, i, ws)
		}
	}
}

func checkModel(m IterableModel) error {
	uf := newUnionFind(m.NumStates())
	for i := 0; i < m.NumStates(); i++ {
		p := StateId(i)
		backoff, _ := m.BackOff(p)
		if backoff != STATE_NIL {
			uf.Union(i, int(backoff))
		}
		for xqw := range m.Transitions(p) {
			if xqw.State != STATE_NIL {
				uf.Union(int(p), int(xqw.State))
			}
		}
	}
	for i := range uf {
		if uf.Find(i) != uf.Find(int(_STATE_START)) {
			return errors.New("there are non-reachable states")
		}
	}
	if p, _ := m.BackOff(_STATE_EMPTY); p != STATE_NIL {
		return errors.New("wrong back-off for _STATE_EMPTY")
	}
	uf = newUnionFind(m.NumStates())
	for i := 0; i < m.NumStates(); i++ {
		if b, _ := m.BackOff(StateId(i)); b != STATE_NIL {
			uf.Union(int(b), i)
		}
	}
	for i := range uf[_STATE_EMPTY+1:] {
		if uf.Find(i) != int(_STATE_EMPTY) {
			return errors.New("there are states that do not back off to empty")
		}
	}
	internal := map[StateId]bool{}
	for i := 0; i < m.NumStates(); i++ {
		p := StateId(i)
		n := 0
		for range m.Transitions(p) {
			n++
		}
		if n > 0 {
			internal[p] = true
		}
	}
	for i := int(_STATE_EMPTY + 1); i < m.NumStates(); i++ {
		b, _ := m.BackOff(StateId(i))
		if !internal[b] {
			return errors.New("backing off to a leaf state")
		}
	}
	delete(internal, _STATE_START)
	if len(internal)+1 != m.NumStates() {
		return errors.New("there are non-start leaf states")
	}
	return nil
}

type unionFind []int

func newUnionFind(n int) unionFind {
	uf := make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return uf
}

func (uf unionFind) Union(a, b int) int {
	ra, rb := uf.Find(a), uf.Find(b)
	uf[rb] = ra
	return ra
}

func (uf unionFind) Find(a int) int {
	r := uf[a]
	for r != uf[r] {
		r = uf[r]
	}
	for uf[a] != r {
		uf[a], a = r, uf[a]
	}
	return r
}
