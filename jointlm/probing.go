package jointlm

import (
	"bytes"
	"encoding/gob"

	"github.com/kho/word"
)

// xqwEntry is one bucket of an open-addressed (state, weight) table
// keyed by word.Id; word.NIL marks an empty bucket.
type xqwEntry struct {
	Key   word.Id
	Value StateWeight
}

// xqwBuckets is the raw bucket array, laid out so it can be memory
// mapped directly (see hashed.go).
type xqwBuckets []xqwEntry

func xqwInitBuckets(n int) xqwBuckets {
	s := make(xqwBuckets, n)
	for i := range s {
		s[i].Key = word.NIL
	}
	return s
}

func (b xqwBuckets) Size() (n int) {
	for _, e := range b {
		if e.Key != word.NIL {
			n++
		}
	}
	return
}

func (b xqwBuckets) start(k word.Id) int {
	return int(idHash(k) % uint(len(b)))
}

func (b xqwBuckets) Find(k word.Id) *StateWeight {
	i := b.start(k)
	for {
		e := &b[i]
		if e.Key == k {
			return &e.Value
		}
		if e.Key == word.NIL {
			return nil
		}
		i++
		if i == len(b) {
			i = 0
		}
	}
}

// FindEntry returns the bucket holding k, or the first empty bucket
// that would hold it. The returned entry's Key is word.NIL exactly
// when k is not present.
func (b xqwBuckets) FindEntry(k word.Id) *xqwEntry {
	i := b.start(k)
	for {
		e := &b[i]
		if e.Key == k || e.Key == word.NIL {
			return e
		}
		i++
		if i == len(b) {
			i = 0
		}
	}
}

func (b xqwBuckets) nextAvailable(k word.Id) *xqwEntry {
	i := b.start(k)
	for {
		e := &b[i]
		if e.Key == word.NIL {
			return e
		}
		i++
		if i == len(b) {
			i = 0
		}
	}
}

func (b xqwBuckets) Range() chan xqwEntry {
	ch := make(chan xqwEntry)
	go func() {
		for _, e := range b {
			if e.Key != word.NIL {
				ch <- e
			}
		}
		close(ch)
	}()
	return ch
}

// idHash is fast-hash (https://code.google.com/p/fast-hash) applied to
// a word.Id.
func idHash(k word.Id) uint {
	h := uint64(k)
	h ^= h >> 23
	h *= 0x2127599bf4325c37
	h ^= h >> 47
	return uint(h)
}

// xqwMap is a growable wrapper around xqwBuckets used while building a
// model; the final model stores the flat xqwBuckets directly.
type xqwMap struct {
	buckets               xqwBuckets
	numEntries, threshold int
}

func newXqwMap(initNumBuckets int, maxUsed float64) *xqwMap {
	if initNumBuckets == 0 {
		initNumBuckets = 4
	} else if initNumBuckets < 2 {
		initNumBuckets = 2
	}
	if maxUsed <= 0 || maxUsed >= 1 {
		maxUsed = 0.8
	}
	threshold := int(float64(initNumBuckets) * maxUsed)
	if threshold < 1 {
		threshold = 1
	}
	if threshold > initNumBuckets-1 {
		threshold = initNumBuckets - 1
	}
	return &xqwMap{xqwInitBuckets(initNumBuckets), 0, threshold}
}

func (m *xqwMap) Size() int { return m.numEntries }

func (m *xqwMap) Find(k word.Id) *StateWeight {
	return m.buckets.Find(k)
}

func (m *xqwMap) FindOrInsert(k word.Id) *StateWeight {
	e := m.buckets.FindEntry(k)
	if e.Key != word.NIL {
		return &e.Value
	}
	if m.numEntries >= m.threshold {
		m.Resize(len(m.buckets) * 2)
		e = m.buckets.nextAvailable(k)
	}
	*e = xqwEntry{Key: k}
	m.numEntries++
	return &e.Value
}

func (m *xqwMap) Resize(numBuckets int) {
	if numBuckets < m.numEntries+1 {
		numBuckets = m.numEntries + 1
	}
	buckets := xqwInitBuckets(numBuckets)
	for _, e := range m.buckets {
		if e.Key != word.NIL {
			*buckets.nextAvailable(e.Key) = e
		}
	}
	oldNumBuckets := len(m.buckets)
	m.buckets = buckets
	m.threshold = m.threshold * numBuckets / oldNumBuckets
	if m.threshold < m.numEntries {
		m.threshold = m.numEntries
	}
}

func (m *xqwMap) Range() chan xqwEntry {
	return m.buckets.Range()
}

func (m *xqwMap) MarshalBinary() (data []byte, err error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err = enc.Encode(m.buckets); err != nil {
		return
	}
	if err = enc.Encode(m.numEntries); err != nil {
		return
	}
	if err = enc.Encode(m.threshold); err != nil {
		return
	}
	return buf.Bytes(), nil
}

func (m *xqwMap) UnmarshalBinary(data []byte) (err error) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err = dec.Decode(&m.buckets); err != nil {
		return
	}
	if err = dec.Decode(&m.numEntries); err != nil {
		return
	}
	return dec.Decode(&m.threshold)
}
