package jointlm

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unsafe"

	"github.com/kho/word"
)

// Sorted is a finite-state joint-unit n-gram model whose per-state
// transitions are a word-sorted slice, searched by binary search. It
// uses less memory than Hashed at the cost of O(log d) lookups instead
// of expected O(1), where d is the out-degree of the state.
type Sorted struct {
	vocab        *word.Vocab
	bos, eos     string
	bosId, eosId word.Id
	// transitions[p] is sorted by Word, with the back-off transition
	// (keyed word.NIL, which sorts first) as transitions[p][0].
	transitions [][]WordStateWeight
}

func (m *Sorted) Start() StateId { return _STATE_START }

func (m *Sorted) findNext(p StateId, x word.Id) *WordStateWeight {
	next := m.transitions[p]
	l, h := 0, len(next)
	for l < h {
		mid := l + (h-l)>>1
		if next[mid].Word < x {
			l = mid + 1
		} else if next[mid].Word > x {
			h = mid
		} else {
			return &next[mid]
		}
	}
	return &next[0] // transitions[p][0] is always the back-off entry.
}

func (m *Sorted) NextI(p StateId, x word.Id) (q StateId, w Weight) {
	if x == word.NIL {
		return _STATE_EMPTY, WEIGHT_LOG0
	}
	next := m.findNext(p, x)
	for next.Word != x && p != _STATE_EMPTY {
		p = next.State
		w += next.Weight
		next = m.findNext(p, x)
	}
	if next.Word == x {
		q = next.State
		w += next.Weight
	} else {
		q = _STATE_EMPTY
		w = WEIGHT_LOG0
	}
	return
}

func (m *Sorted) NextS(p StateId, s string) (StateId, Weight) {
	return m.NextI(p, m.vocab.IdOf(s))
}

func (m *Sorted) Final(p StateId) Weight {
	_, w := m.NextI(p, m.eosId)
	return w
}

func (m *Sorted) BackOff(p StateId) (StateId, Weight) {
	if p == _STATE_EMPTY {
		return STATE_NIL, 0
	}
	bo := m.transitions[p][0]
	return bo.State, bo.Weight
}

func (m *Sorted) Vocab() (*word.Vocab, string, string, word.Id, word.Id) {
	return m.vocab, m.bos, m.eos, m.bosId, m.eosId
}

func (m *Sorted) NumStates() int { return len(m.transitions) }

func (m *Sorted) Transitions(p StateId) chan WordStateWeight {
	ch := make(chan WordStateWeight)
	go func() {
		for _, xqw := range m.transitions[p] {
			if xqw.Word != word.NIL {
				ch <- xqw
			}
		}
		close(ch)
	}()
	return ch
}

type byWord []WordStateWeight

func (s byWord) Len() int           { return len(s) }
func (s byWord) Less(i, j int) bool { return s[i].Word < s[j].Word }
func (s byWord) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func (m *Sorted) MarshalBinary() (data []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []interface{}{m.vocab, m.bos, m.eos, m.transitions} {
		if err = enc.Encode(v); err != nil {
			return
		}
	}
	return buf.Bytes(), nil
}

func (m *Sorted) UnmarshalBinary(data []byte) (err error) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	for _, v := range []interface{}{&m.vocab, &m.bos, &m.eos, &m.transitions} {
		if err = dec.Decode(v); err != nil {
			return
		}
	}
	if m.bosId = m.vocab.IdOf(m.bos); m.bosId == word.NIL {
		return errors.New(m.bos + " not in vocabulary")
	}
	if m.eosId = m.vocab.IdOf(m.eos); m.eosId == word.NIL {
		return errors.New(m.eos + " not in vocabulary")
	}
	return nil
}

func (m *Sorted) header() (header []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []interface{}{m.vocab, m.bos, m.eos} {
		if err = enc.Encode(v); err != nil {
			return
		}
	}
	numTransitions := make([]int, len(m.transitions))
	for i, t := range m.transitions {
		numTransitions[i] = len(t)
	}
	if err = enc.Encode(numTransitions); err != nil {
		return
	}
	return buf.Bytes(), nil
}

func (m *Sorted) parseHeader(header []byte) (numTransitions []int, err error) {
	dec := gob.NewDecoder(bytes.NewReader(header))
	for _, v := range []interface{}{&m.vocab, &m.bos, &m.eos} {
		if err = dec.Decode(v); err != nil {
			return
		}
	}
	if m.bosId = m.vocab.IdOf(m.bos); m.bosId == word.NIL {
		return nil, errors.New(m.bos + " not in vocabulary")
	}
	if m.eosId = m.vocab.IdOf(m.eos); m.eosId == word.NIL {
		return nil, errors.New(m.eos + " not in vocabulary")
	}
	err = dec.Decode(&numTransitions)
	return
}

func (m *Sorted) WriteBinary(path string) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return
	}
	defer w.Close()
	if _, err = w.Write([]byte(magicSorted)); err != nil {
		return
	}
	header, err := m.header()
	if err != nil {
		return
	}
	headerLenBytes := make([]byte, binary.MaxVarintLen64)
	binary.PutUvarint(headerLenBytes, uint64(len(header)))
	if _, err = w.Write(headerLenBytes); err != nil {
		return
	}
	if _, err = w.Write(header); err != nil {
		return
	}
	written, err := w.Seek(0, 1)
	if err != nil {
		return
	}
	align := unsafe.Alignof(WordStateWeight{})
	if _, err = w.Write(make([]byte, (align-uintptr(written)%align)%align)); err != nil {
		return
	}
	size := unsafe.Sizeof(WordStateWeight{})
	for _, next := range m.transitions {
		hdr := (*reflect.SliceHeader)(unsafe.Pointer(&next))
		var raw []byte
		rawHdr := (*reflect.SliceHeader)(unsafe.Pointer(&raw))
		rawHdr.Data = hdr.Data
		rawHdr.Len = int(uintptr(hdr.Len) * size)
		rawHdr.Cap = rawHdr.Len
		if _, err = w.Write(raw); err != nil {
			return
		}
	}
	return nil
}

func (m *Sorted) unsafeParseBinary(raw []byte) error {
	if string(raw[:len(magicSorted)]) != magicSorted {
		return errors.New("not a jointlm sorted binary file")
	}
	read := uintptr(len(magicSorted))
	headerLen, n := binary.Uvarint(raw[read : read+binary.MaxVarintLen64])
	if n <= 0 {
		return errors.New("error reading header size")
	}
	read += binary.MaxVarintLen64
	numTransitions, err := m.parseHeader(raw[read : read+uintptr(headerLen)])
	if err != nil {
		return err
	}
	read += uintptr(headerLen)
	align, size := unsafe.Alignof(WordStateWeight{}), unsafe.Sizeof(WordStateWeight{})
	read += (align - read%align) % align
	if (uintptr(len(raw))-read)%size != 0 {
		return fmt.Errorf("number of left-over bytes is not a multiple of %d", size)
	}
	entryBytes := raw[read:]
	var entries []WordStateWeight
	srcHdr := (*reflect.SliceHeader)(unsafe.Pointer(&entryBytes))
	dstHdr := (*reflect.SliceHeader)(unsafe.Pointer(&entries))
	dstHdr.Data = srcHdr.Data
	dstHdr.Len = srcHdr.Len / int(size)
	dstHdr.Cap = dstHdr.Len
	m.transitions = make([][]WordStateWeight, len(numTransitions))
	low := 0
	for i, n := range numTransitions {
		m.transitions[i] = entries[low : low+n]
		low += n
	}
	return nil
}
