package decode

// G2P converts grapheme into its most probable pronunciation under
// model, searching with a beam of the given width. ok is false when
// grapheme is empty or no joint unit in the vocabulary aligns with it —
// this is a normal, non-error result, not a failure of the search.
//
// G2P owns the beam table and back-pointer forest for the duration of
// the call; neither survives past the return.
func G2P(model Model, grapheme string, beamWidth int) (phoneme string, ok bool) {
	f, leaf, ok := NewDecoder(model).decode(grapheme, beamWidth)
	if !ok {
		return "", false
	}
	return assemble(f, leaf, model), true
}
