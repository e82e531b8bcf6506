package jointlm

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"syscall"
	"unsafe"

	"github.com/kho/word"
)

// Hashed is a finite-state joint-unit n-gram model backed by
// open-addressed hash tables, one per state. It is usually loaded
// from a binary file or built with a Builder.
type Hashed struct {
	vocab        *word.Vocab
	bos, eos     string
	bosId, eosId word.Id
	// transitions[p] holds every out-going lexical transition from state
	// p. Every bucket keyed word.NIL (i.e. every empty bucket) carries
	// the back-off transition as its value, so a failed lookup lands
	// directly on the back-off.
	transitions []xqwBuckets
}

func (m *Hashed) Start() StateId { return _STATE_START }

func (m *Hashed) NextI(p StateId, x word.Id) (q StateId, w Weight) {
	if x == word.NIL {
		// word.NIL is reserved internally as the back-off pseudo-key; a
		// caller passing it means x was never in the vocabulary.
		return _STATE_EMPTY, WEIGHT_LOG0
	}
	next := m.transitions[p].FindEntry(x)
	for next.Key == word.NIL && p != _STATE_EMPTY {
		p = next.Value.State
		w += next.Value.Weight
		next = m.transitions[p].FindEntry(x)
	}
	if next.Key != word.NIL {
		q = next.Value.State
		w += next.Value.Weight
	} else {
		q = _STATE_EMPTY
		w = WEIGHT_LOG0
	}
	return
}

func (m *Hashed) NextS(p StateId, s string) (StateId, Weight) {
	return m.NextI(p, m.vocab.IdOf(s))
}

func (m *Hashed) Final(p StateId) Weight {
	_, w := m.NextI(p, m.eosId)
	return w
}

func (m *Hashed) BackOff(p StateId) (StateId, Weight) {
	if p == _STATE_EMPTY {
		return STATE_NIL, 0
	}
	bo := m.transitions[p].FindEntry(word.NIL).Value
	return bo.State, bo.Weight
}

func (m *Hashed) Vocab() (*word.Vocab, string, string, word.Id, word.Id) {
	return m.vocab, m.bos, m.eos, m.bosId, m.eosId
}

func (m *Hashed) NumStates() int { return len(m.transitions) }

func (m *Hashed) Transitions(p StateId) chan WordStateWeight {
	ch := make(chan WordStateWeight)
	go func() {
		for e := range m.transitions[p].Range() {
			if e.Key != word.NIL {
				ch <- WordStateWeight{e.Key, e.Value.State, e.Value.Weight}
			}
		}
		close(ch)
	}()
	return ch
}

// MarshalBinary serializes m with gob. This is convenient but slow;
// prefer WriteBinary/FromBinary for models you intend to reload often.
func (m *Hashed) MarshalBinary() (data []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []interface{}{m.vocab, m.bos, m.eos, m.transitions} {
		if err = enc.Encode(v); err != nil {
			return
		}
	}
	return buf.Bytes(), nil
}

func (m *Hashed) UnmarshalBinary(data []byte) (err error) {
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

func (m *Hashed) header() (header []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []interface{}{m.vocab, m.bos, m.eos} {
		if err = enc.Encode(v); err != nil {
			return
		}
	}
	numBuckets := make([]int, len(m.transitions))
	for i, t := range m.transitions {
		numBuckets[i] = len(t)
	}
	if err = enc.Encode(numBuckets); err != nil {
		return
	}
	return buf.Bytes(), nil
}

func (m *Hashed) parseHeader(header []byte) (numBuckets []int, err error) {
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
	err = dec.Decode(&numBuckets)
	return
}

// WriteBinary writes m to path as a magic-prefixed gob header followed
// by the raw, alignment-padded entry array, so FromBinary can mmap it
// and read it back without copying.
func (m *Hashed) WriteBinary(path string) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return
	}
	defer w.Close()
	if _, err = w.Write([]byte(magicHashed)); err != nil {
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
	written, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return
	}
	align := unsafe.Alignof(xqwEntry{})
	if _, err = w.Write(make([]byte, (align-uintptr(written)%align)%align)); err != nil {
		return
	}
	size := unsafe.Sizeof(xqwEntry{})
	for _, buckets := range m.transitions {
		hdr := (*reflect.SliceHeader)(unsafe.Pointer(&buckets))
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

func (m *Hashed) unsafeParseBinary(raw []byte) error {
	if string(raw[:len(magicHashed)]) != magicHashed {
		return errors.New("not a jointlm hashed binary file")
	}
	read := uintptr(len(magicHashed))
	headerLen, n := binary.Uvarint(raw[read : read+binary.MaxVarintLen64])
	if n <= 0 {
		return errors.New("error reading header size")
	}
	read += binary.MaxVarintLen64
	numBuckets, err := m.parseHeader(raw[read : read+uintptr(headerLen)])
	if err != nil {
		return err
	}
	read += uintptr(headerLen)
	align, size := unsafe.Alignof(xqwEntry{}), unsafe.Sizeof(xqwEntry{})
	read += (align - read%align) % align
	if (uintptr(len(raw))-read)%size != 0 {
		return fmt.Errorf("number of left-over bytes is not a multiple of %d", size)
	}
	entryBytes := raw[read:]
	var entries []xqwEntry
	srcHdr := (*reflect.SliceHeader)(unsafe.Pointer(&entryBytes))
	dstHdr := (*reflect.SliceHeader)(unsafe.Pointer(&entries))
	dstHdr.Data = srcHdr.Data
	dstHdr.Len = srcHdr.Len / int(size)
	dstHdr.Cap = dstHdr.Len
	m.transitions = make([]xqwBuckets, len(numBuckets))
	low := 0
	for i, n := range numBuckets {
		m.transitions[i] = xqwBuckets(entries[low : low+n])
		low += n
	}
	return nil
}

// MappedFile is a read-only memory-mapped file backing a Hashed or
// Sorted model loaded with FromBinary. Callers must keep it alive (and
// eventually Close it) for as long as the model is used.
type MappedFile struct {
	file *os.File
	data []byte
}

func OpenMappedFile(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MappedFile{f, data}, nil
}

func (m *MappedFile) Close() error {
	err1 := syscall.Munmap(m.data)
	err2 := m.file.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
