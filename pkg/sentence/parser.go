package sentence

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// streamPayload is the two-field object assembled by the structured stream.
type streamPayload struct {
	Motion string `json:"motion"`
	Talk   string `json:"talk"`
}

// StreamParser consumes a partial JSON object being streamed token by token
// and emits complete sentences from its "talk" field. The "motion" field is
// extracted exactly once, first occurrence wins, and reported through the
// onMotion callback.
type StreamParser struct {
	buf       string
	emitted   int // byte offset into talk already emitted
	gotMotion bool
	onMotion  func(tag string)
}

// NewStreamParser returns a parser for the structured motion/talk stream.
// onMotion may be nil if motion tags are not of interest.
func NewStreamParser(onMotion func(tag string)) *StreamParser {
	return &StreamParser{onMotion: onMotion}
}

// Feed appends delta to the accumulated JSON buffer and returns all newly
// completed sentences from the talk field. If neither a strict nor a forced
// parse succeeds yet, nothing is emitted until more data arrives.
func (p *StreamParser) Feed(delta string) []string {
	p.buf += delta

	var payload streamPayload
	if err := json.Unmarshal([]byte(p.buf), &payload); err == nil {
		// Complete object. If the talk does not already end at a
		// boundary, add one so the final fragment still terminates.
		if payload.Talk != "" {
			last, _ := utf8.DecodeLastRuneInString(payload.Talk)
			if !IsBoundary(last) {
				payload.Talk += "。"
			}
		}
	} else {
		start := strings.Index(p.buf, "{")
		end := strings.LastIndex(p.buf, "}")
		raw := p.buf
		if start >= 0 {
			if end > start {
				raw = p.buf[start : end+1]
			} else {
				raw = p.buf[start:]
			}
		}
		forced, ok := forceParseJSON(raw)
		if !ok {
			return nil
		}
		payload = forced
	}

	if payload.Talk == "" {
		return nil
	}

	if !p.gotMotion && payload.Motion != "" {
		p.gotMotion = true
		if p.onMotion != nil {
			p.onMotion(payload.Motion)
		}
	}

	return p.split(payload.Talk)
}

// split emits every complete sentence in talk past the already-emitted
// offset.
func (p *StreamParser) split(talk string) []string {
	var out []string
	if p.emitted > len(talk) {
		// Talk shrank between parses; resync rather than emit garbage.
		p.emitted = len(talk)
		return nil
	}
	for i, r := range talk[p.emitted:] {
		if IsBoundary(r) {
			end := p.emitted + i + utf8.RuneLen(r)
			frag := talk[p.emitted:end]
			p.emitted = end
			if frag != "" {
				out = append(out, frag)
			}
			// Offsets moved; restart the scan from the new position.
			return append(out, p.split(talk)...)
		}
	}
	return out
}

// Flush returns any unemitted tail of the talk field and resets the parser.
func (p *StreamParser) Flush() string {
	var payload streamPayload
	if err := json.Unmarshal([]byte(p.buf), &payload); err != nil {
		forced, ok := forceParseJSON(p.buf)
		if !ok {
			p.reset()
			return ""
		}
		payload = forced
	}

	rest := ""
	if p.emitted < len(payload.Talk) {
		rest = payload.Talk[p.emitted:]
	}
	p.reset()
	return rest
}

func (p *StreamParser) reset() {
	p.buf = ""
	p.emitted = 0
	p.gotMotion = false
}

// forceParseJSON leniently parses a truncated JSON object by closing any
// unterminated string and balancing unclosed braces, then retrying a strict
// parse. Returns ok=false if even the repaired text does not parse.
func forceParseJSON(raw string) (streamPayload, bool) {
	var payload streamPayload

	start := strings.Index(raw, "{")
	if start < 0 {
		return payload, false
	}
	raw = raw[start:]

	inString := false
	escaped := false
	depth := 0
	for _, r := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}

	repaired := raw
	if escaped {
		// Trailing lone backslash; drop it so the closer below is valid.
		repaired = repaired[:len(repaired)-1]
	}
	if inString {
		repaired += `"`
	}
	// A dangling "key": with no value yet cannot be repaired by brace
	// balancing alone; strip back to the last complete element.
	repaired = trimDanglingKey(repaired)
	for i := 0; i < depth; i++ {
		repaired += "}"
	}

	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return payload, false
	}
	return payload, true
}

// trimDanglingKey removes a trailing `,` or `"key":` left hanging at the
// cut point of a truncated object.
func trimDanglingKey(s string) string {
	t := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(t, ":") {
		if i := strings.LastIndex(t[:len(t)-1], ","); i >= 0 {
			return t[:i]
		}
		if i := strings.LastIndex(t, "{"); i >= 0 {
			return t[:i+1]
		}
	}
	if strings.HasSuffix(t, ",") {
		return t[:len(t)-1]
	}
	return s
}
