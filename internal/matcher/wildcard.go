package matcher

import "strings"

// wildcardMatch implements standard '*' (any run, including empty) and '?'
// (exactly one char) glob semantics over already-lowercased text, via
// recursive pattern/text advance per spec §4.7.
func wildcardMatch(pattern, text string) bool {
	return wildcardMatchAt(pattern, text, 0, 0)
}

func wildcardMatchAt(pattern, text string, pi, ti int) bool {
	for pi < len(pattern) {
		switch pattern[pi] {
		case '*':
			// collapse runs of '*' and try every split point; the empty
			// match is tried first so a trailing '*' terminates cheaply.
			for pi < len(pattern) && pattern[pi] == '*' {
				pi++
			}
			if pi == len(pattern) {
				return true
			}
			for t := ti; t <= len(text); t++ {
				if wildcardMatchAt(pattern, text, pi, t) {
					return true
				}
			}
			return false
		case '?':
			if ti >= len(text) {
				return false
			}
			pi++
			ti++
		default:
			if ti >= len(text) || pattern[pi] != text[ti] {
				return false
			}
			pi++
			ti++
		}
	}
	return ti == len(text)
}

// wildcardSegmentMatch reports whether any '/'-delimited segment of text
// matches pattern in isolation, for the spec's 0.6 segment-match score.
func wildcardSegmentMatch(pattern, text string) bool {
	for _, seg := range strings.Split(text, "/") {
		if wildcardMatch(pattern, seg) {
			return true
		}
	}
	return false
}

// wildcardHighlight returns the (offset, length) span in text covered by a
// full-name wildcard match: one span over the whole name, or nil when the
// pattern does not match the whole name. The literal characters the
// pattern fixes are not localized.
func wildcardHighlight(pattern, text string) []span {
	if !wildcardMatch(pattern, text) {
		return nil
	}
	if !strings.ContainsAny(pattern, "*?") {
		return []span{{offset: 0, length: len(text)}}
	}
	return []span{{offset: 0, length: len(text)}}
}
