// Package sentence converts incremental text streams into complete,
// playable sentence fragments.
//
// Two modes exist: Splitter handles a plain token stream; StreamParser
// handles the structured motion/talk protocol where the stream is a JSON
// object assembled token by token.
package sentence

import (
	"strings"
	"unicode/utf8"
)

// boundaryChars delimit a complete sentence in a streaming token sequence.
const boundaryChars = "、。．.！!?？\n}"

// IsBoundary reports whether r terminates a sentence.
func IsBoundary(r rune) bool {
	return strings.ContainsRune(boundaryChars, r)
}

// Splitter accumulates streamed text deltas and emits complete sentences
// as boundary characters arrive. At most one fragment is emitted per Feed
// call; remaining boundaries are picked up on the next call or at Flush.
type Splitter struct {
	buf string
}

// NewSplitter returns an empty splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Feed appends delta to the buffer and returns the first complete sentence
// if a boundary character is present. Empty fragments are never emitted.
func (s *Splitter) Feed(delta string) (string, bool) {
	s.buf += delta

	for i, r := range s.buf {
		if IsBoundary(r) {
			end := i + utf8.RuneLen(r)
			frag := s.buf[:end]
			s.buf = s.buf[end:]
			if frag == "" {
				return "", false
			}
			return frag, true
		}
	}
	return "", false
}

// Flush returns any remaining buffered text as a final fragment and resets
// the splitter. The fragment may be empty.
func (s *Splitter) Flush() string {
	rest := s.buf
	s.buf = ""
	return rest
}

// Pending reports whether text is buffered awaiting a boundary.
func (s *Splitter) Pending() bool {
	return s.buf != ""
}
