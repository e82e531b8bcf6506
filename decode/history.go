package decode

// unwind reconstructs the n-gram history expected by Model's
// conditional log-probability query: leaf's own wid first, then its
// parent's, and so on root-ward, with startSentinel appended as the
// oldest element. buf must have capacity for the longest possible
// history (N+1, where N is the grapheme length); it is overwritten on
// every call, not appended to, so callers can reuse one buffer across
// an entire decode. Returns the length written.
//
// When leaf is noNode (no predecessor), the result is just
// [startSentinel] of length 1.
func unwind(buf []int, f *forest, leaf nodeHandle, startSentinel int) int {
	n := 0
	for h := leaf; h != noNode; {
		node := f.get(h)
		buf[n] = node.wid
		n++
		h = node.parent
	}
	buf[n] = startSentinel
	n++
	return n
}
