package cpu

import "github.com/kallistipsx/gopsx/bits"

// icache models the R3000's 256-line instruction cache (§3): each line
// holds a tag (19 bits of the line address) plus 4 words of data. A line
// is valid when the current fetch word index is >= the line's recorded
// valid-word index and the tag matches (§4.4). This implementation
// refills a whole line on any miss (validWord always becomes 0 after a
// refill), a standard simplification of the real partial-burst-refill
// behavior that preserves the tag/valid-word contract observably.
type icache struct {
	lines [256]icacheLine
}

type icacheLine struct {
	tag      uint32
	valid    bool
	validWord uint32
	data     [4]uint32
}

func cacheLineIndex(addr uint32) uint32  { return bits.Range(addr, 4, 11) }
func cacheWordIndex(addr uint32) uint32  { return bits.Range(addr, 2, 3) }
func cacheTag(addr uint32) uint32        { return bits.Range(addr, 12, 30) }

// cacheable reports whether vaddr is in a cacheable region:
// top 3 bits of the virtual address <= 4 (KUSEG or KSEG0), per §4.4.
func cacheable(vaddr uint32) bool {
	return vaddr>>29 <= 4
}

// lookup returns (word, true) on a cache hit, or (0, false) on a miss.
func (c *icache) lookup(vaddr uint32) (uint32, bool) {
	line := &c.lines[cacheLineIndex(vaddr)]
	wordIdx := cacheWordIndex(vaddr)
	if line.valid && line.tag == cacheTag(vaddr) && wordIdx >= line.validWord {
		return line.data[wordIdx], true
	}
	return 0, false
}

// refill installs a freshly fetched line (all 4 words, little regard to
// the specific word index that missed, per the simplification above).
func (c *icache) refill(vaddr uint32, words [4]uint32) {
	line := &c.lines[cacheLineIndex(vaddr)]
	line.tag = cacheTag(vaddr)
	line.valid = true
	line.validWord = 0
	line.data = words
}
