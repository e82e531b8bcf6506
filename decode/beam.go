package decode

// Decoder runs a beam search for the best-scoring joint-unit
// segmentation of a grapheme string against a Model.
type Decoder struct {
	model Model
}

// NewDecoder constructs a Decoder over model.
func NewDecoder(model Model) *Decoder {
	return &Decoder{model: model}
}

// decode finds the highest-scoring joint-unit sequence covering all of
// grapheme under a beam of the given width, and returns the leaf
// hypothesis of the winning chain (the true last grapheme-bearing
// unit; the </s> sentinel itself is stripped). ok is false when
// grapheme is empty or no joint-unit sequence covers all of it.
//
// Every call allocates a fresh forest, so the returned
// (*forest, nodeHandle) pair stays valid after later calls; callers
// that need the phoneme string pass it to assemble, as G2P does.
func (d *Decoder) decode(grapheme string, beamWidth int) (f *forest, leaf nodeHandle, ok bool) {
	n := len(grapheme)
	if n == 0 {
		return nil, noNode, false
	}

	startWid := d.model.WordID("<s>")
	endWid := d.model.WordID("</s>")
	vocabSize := d.model.VocabularySize()

	beams := make([]*beam, n+1)
	for i := 0; i < n; i++ {
		beams[i] = newBeam(beamWidth)
	}
	beams[n] = newBeam(1)

	f = newForest(n * beamWidth)
	history := make([]int, n+1)

	for i := 0; i < n; i++ {
		for wid := 0; wid < vocabSize; wid++ {
			k := fitCount(grapheme, i, d.model.Surface(wid))
			if k == 0 {
				continue
			}
			var src *beam
			if i > 0 {
				src = beams[i-1]
			}
			d.extend(f, src, beams[i+k-1], wid, history, startWid)
		}
	}
	d.extend(f, beams[n-1], beams[n], endWid, history, startWid)

	if beams[n].size() == 0 {
		return f, noNode, false
	}
	terminal := f.get(beams[n].element(0))
	if terminal.parent == noNode {
		return f, noNode, false
	}
	return f, terminal.parent, true
}

// extend tries to admit wid, extending every hypothesis in src (or, if
// src is nil, the sentence start alone) into dst.
func (d *Decoder) extend(f *forest, src, dst *beam, wid int, history []int, startWid int) {
	if src == nil {
		history[0] = startWid
		logProb := d.model.ConditionalLogProb(wid, history, 1)
		d.tryAdmit(f, dst, wid, Score(logProb), noNode)
		return
	}
	for i := 0; i < src.size(); i++ {
		h := src.element(i)
		node := f.get(h)
		historyLen := unwind(history, f, h, startWid)
		logProb := d.model.ConditionalLogProb(wid, history, historyLen)
		d.tryAdmit(f, dst, wid, node.score+Score(logProb), h)
	}
}

// tryAdmit implements the bounded-beam admission policy: allocation of
// the candidate node is deferred until admission is certain, so a
// rejected candidate never touches the forest.
func (d *Decoder) tryAdmit(f *forest, dst *beam, wid int, score Score, parent nodeHandle) {
	if !dst.isFull() {
		dst.add(score, f.push(wid, score, parent))
		return
	}
	if score > dst.minKey() {
		dst.pop()
		dst.add(score, f.push(wid, score, parent))
	}
}
