package extract

import (
	"encoding/json"
	"strings"
)

const fence = "```"

// fencedBlocks returns the contents of triple-backtick blocks in order of
// appearance. An unterminated final fence yields the remaining text.
func fencedBlocks(s string) []string {
	var blocks []string
	for {
		open := strings.Index(s, fence)
		if open < 0 {
			return blocks
		}
		s = s[open+len(fence):]
		end := strings.Index(s, fence)
		if end < 0 {
			return append(blocks, s)
		}
		blocks = append(blocks, s[:end])
		s = s[end+len(fence):]
	}
}

// parseBlock tries the block as-is, then with a leading language tag removed.
func parseBlock(block string) (json.RawMessage, bool) {
	body := strings.TrimSpace(block)
	if body == "" {
		return nil, false
	}
	if json.Valid([]byte(body)) {
		return json.RawMessage(body), true
	}
	tag := 0
	for tag < len(body) && isTagByte(body[tag]) {
		tag++
	}
	if tag == 0 {
		return nil, false
	}
	body = strings.TrimSpace(body[tag:])
	if body != "" && json.Valid([]byte(body)) {
		return json.RawMessage(body), true
	}
	return nil, false
}

func isTagByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '+'
}

// matchBalanced returns the index one past the bracket that closes the opener
// at s[start], or -1. Brackets inside string literals are ignored and a
// backslash always consumes the following byte within a string.
func matchBalanced(s string, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// bracketCandidate locates the first opener byte and parses its balanced span.
func bracketCandidate(s string, opener byte) (json.RawMessage, bool) {
	start := strings.IndexByte(s, opener)
	if start < 0 {
		return nil, false
	}
	end := matchBalanced(s, start)
	if end < 0 {
		return nil, false
	}
	span := s[start:end]
	if !json.Valid([]byte(span)) {
		return nil, false
	}
	return json.RawMessage(span), true
}

// openerOrder returns the opener to try first and the fallback opener.
func openerOrder(s string, prefer Prefer) (byte, byte) {
	switch prefer {
	case PreferObject:
		return '{', '['
	case PreferArray:
		return '[', '{'
	}
	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	if arr >= 0 && (obj < 0 || arr < obj) {
		return '[', '{'
	}
	return '{', '['
}
