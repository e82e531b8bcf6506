package jointlm

// ARPA-style file parsing for joint-unit n-gram models, using
// iteratees (github.com/kho/stream) to stream the standard SRILM ARPA
// grammar. Only the vocabulary ("words") being read differs from a
// plain word-level n-gram model, here joint units "G}P" rather than
// plain tokens.

import (
	"bytes"
	"fmt"
	"log"
	"strconv"

	"github.com/kho/stream"
)

type arpaTop struct {
	builder *Builder
}

func (it arpaTop) Final() error { return stream.Match(`\data\`).Final() }

func (it arpaTop) Next(line []byte) (stream.Iteratee, bool, error) {
	return stream.Seq{
		stream.Match(`\data\`),
		skipNgramCounts{},
		stream.Star{ngramSection{it.builder}},
		stream.Match(`\end\`),
		stream.EOF}, false, nil
}

// skipNgramCounts skips the n-gram-count summary section; this reader
// does not use the counts for pre-sizing.
type skipNgramCounts struct{}

func (skipNgramCounts) Final() error { return nil }

func (it skipNgramCounts) Next(line []byte) (stream.Iteratee, bool, error) {
	if line[0] == '\\' {
		return nil, false, nil
	}
	return it, true, nil
}

type ngramSection struct {
	builder *Builder
}

func (ngramSection) Final() error { return stream.ErrExpect(`\N-grams: ...`) }

func (it ngramSection) Next(line []byte) (stream.Iteratee, bool, error) {
	if line[0] != '\\' || !bytes.HasSuffix(line, []byte("-grams:")) {
		return nil, false, stream.ErrExpect(`section header "\N-grams:"`)
	}
	n, err := strconv.Atoi(string(line[1 : len(line)-len("-grams:")]))
	if err != nil || n <= 0 {
		return nil, false, stream.ErrExpect(`positive integer in section header "\N-grams:"`)
	}
	return newNgramEntries(n, it.builder), true, nil
}

type ngramEntries struct {
	builder *Builder
	n       int
	// Scratch fields, reused across lines to avoid repeated allocation.
	p, bow  Weight
	context []string
	word    string
}

func newNgramEntries(n int, b *Builder) *ngramEntries {
	return &ngramEntries{builder: b, n: n, context: make([]string, n-1)}
}

func (it *ngramEntries) Final() error { return nil }

func (it *ngramEntries) Next(line []byte) (stream.Iteratee, bool, error) {
	if line[0] == '\\' {
		log.Printf("%d-unit section done", it.n)
		return nil, false, nil
	}
	if err := it.setParts(line); err != nil {
		return nil, false, err
	}
	it.builder.AddNgram(it.context, it.word, it.p, it.bow)
	return it, true, nil
}

func (it *ngramEntries) setParts(line []byte) error {
	x, xs := tokenSplit(line)
	if x == "" {
		return stream.ErrExpect("log-probability")
	}
	f, err := strconv.ParseFloat(x, 32)
	if err != nil {
		return err
	}
	it.p = Weight(f)

	for i := 1; i < it.n; i++ {
		x, xs = tokenSplit(xs)
		if x == "" {
			return stream.ErrExpect(fmt.Sprintf("%d context unit(s)", it.n-1))
		}
		it.context[i-1] = x
	}

	x, xs = tokenSplit(xs)
	if x == "" {
		return stream.ErrExpect("joint unit")
	}
	it.word = x

	x, xs = tokenSplit(xs)
	if x == "" {
		it.bow = 0
	} else if f, err := strconv.ParseFloat(x, 32); err == nil {
		it.bow = Weight(f)
	} else {
		return err
	}

	if len(xs) != 0 {
		return stream.ErrExpect("end of line")
	}
	return nil
}

// Low-level lexing, matching the original ARPA reader's semantics
// exactly: lines are whitespace-trimmed, blank lines are skipped, and
// tokens are whitespace-delimited.

func isSpace(b byte) bool {
	switch b {
	case '\t', '\v', '\f', '\r', ' ':
		return true
	default:
		return false
	}
}

func lineSplit(data []byte, atEOF bool) (int, []byte, error) {
	l, r, n := -1, -1, 0
	for i, b := range data {
		if !isSpace(b) && b != '\n' {
			l = i
			break
		}
	}
	if l < 0 {
		return len(data), nil, nil
	}
	for i, b := range data[l+1:] {
		if b == '\n' {
			r, n = l+i, l+i+2
			break
		}
	}
	if r < 0 {
		if !atEOF {
			return l, nil, nil
		}
		r, n = len(data)-1, len(data)
	}
	for isSpace(data[r]) {
		r--
	}
	return n, data[l : r+1], nil
}

func tokenSplit(line []byte) (string, []byte) {
	r := -1
	for i, b := range line {
		if isSpace(b) {
			r = i
			break
		}
	}
	if r < 0 {
		r = len(line)
	}
	token := string(line[:r])
	for i, b := range line[r:] {
		if !isSpace(b) {
			return token, line[r+i:]
		}
	}
	return token, nil
}
