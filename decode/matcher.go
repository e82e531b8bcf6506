package decode

// fitCount consumes characters of surface (a joint unit's "G}P" form,
// or a sentinel like "<s>") against grapheme starting at offset,
// skipping '|' separators, until it hits the grapheme/phoneme boundary
// '}', a sentinel marker '<', the end of surface, or the end of
// grapheme. It returns the number of grapheme characters consumed if
// every compared pair matched, or 0 on any mismatch. Matching is
// case-sensitive, byte-for-byte; no Unicode normalization is
// attempted. Sentinel surfaces ("<s>", "</s>") always return 0, since
// they start with '<'.
func fitCount(grapheme string, offset int, surface string) int {
	gi, si, count := offset, 0, 0
	for gi < len(grapheme) && si < len(surface) {
		c := surface[si]
		if c == '<' || c == '}' {
			break
		}
		if c == '|' {
			si++
			if si >= len(surface) {
				break
			}
			c = surface[si]
		}
		if grapheme[gi] != c {
			return 0
		}
		count++
		gi++
		si++
	}
	return count
}
