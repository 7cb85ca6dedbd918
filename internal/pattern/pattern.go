// Package pattern matches the wildcard patterns of host names.
package pattern

import (
	"strings"
	"unicode/utf8"
)

// Match reports whether text matches the pattern, ignoring case.
// '*' matches any sequence of characters, including the empty sequence.
// '?' matches exactly one character.
func Match(pattern, text string) bool {
	// fast path
	if pattern == "*" {
		return true
	}
	if pattern == "" {
		return text == ""
	}
	return match(strings.ToLower(pattern), strings.ToLower(text))
}

func match(pattern, text string) bool {
	// the position to retry after the last star.
	starPattern, starText := -1, 0

	p, t := 0, 0
	for t < len(text) {
		if p < len(pattern) {
			switch pattern[p] {
			case '*':
				starPattern, starText = p, t
				p++
				continue
			case '?':
				_, n := utf8.DecodeRuneInString(text[t:])
				p++
				t += n
				continue
			default:
				if pattern[p] == text[t] {
					p++
					t++
					continue
				}
			}
		}
		if starPattern < 0 {
			return false
		}

		// the star consumes one more character.
		_, n := utf8.DecodeRuneInString(text[starText:])
		starText += n
		p, t = starPattern+1, starText
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
