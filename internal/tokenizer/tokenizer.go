// Package tokenizer finds delimited expressions inside SQL text and hands
// their contents to a caller-supplied handler, reassembling the literal
// spans and handler replacements into a single string.
//
// It backs the "${...}" textual-substitution scan of package ast's Text
// node. Any other delimiter pair (such as "#{"/"}") is scanned the same
// way by its own Parser, in its own independent pass over the original
// text, so an escaped delimiter of one kind never interferes with scanning
// for another kind.
package tokenizer

import "strings"

// Handler receives the raw expression found between the open and close
// tokens (the delimiters themselves are not included) and returns the
// string that should replace the whole delimited span.
type Handler func(expression string) string

// Parser scans text for spans delimited by Open/Close, handing each span's
// contents to Handle and splicing the result back into the output.
//
// A backslash immediately preceding a delimiter escapes it: the backslash
// is dropped and the delimiter is treated as a literal character rather
// than the start/end of a span. Escaping works symmetrically for the open
// and close tokens. An open token with no matching close token is emitted
// verbatim, including the open token itself.
type Parser struct {
	Open    string
	Close   string
	Handler Handler
}

// New builds a Parser for the given delimiter pair and handler.
func New(open, close string, handler Handler) *Parser {
	return &Parser{Open: open, Close: close, Handler: handler}
}

// Parse scans text left to right in O(n) and returns the reassembled string.
func (p *Parser) Parse(text string) string {
	if text == "" {
		return ""
	}
	start := strings.Index(text, p.Open)
	if start == -1 {
		return text
	}

	src := []byte(text)
	var out strings.Builder
	var expr strings.Builder
	offset := 0

	for start > -1 {
		if start > 0 && src[start-1] == '\\' {
			// The open token is escaped: drop the backslash, keep the
			// token literal, and keep scanning from just past it.
			out.Write(src[offset : start-1])
			out.WriteString(p.Open)
			offset = start + len(p.Open)
		} else {
			expr.Reset()
			out.Write(src[offset:start])
			offset = start + len(p.Open)
			end := strings.Index(text[offset:], p.Close)
			if end != -1 {
				end += offset
			}
			for end > -1 {
				if end > offset && src[end-1] == '\\' {
					// The close token is escaped: drop the backslash,
					// keep it literal, and keep looking for a real close.
					expr.Write(src[offset : end-1])
					expr.WriteString(p.Close)
					offset = end + len(p.Close)
					next := strings.Index(text[offset:], p.Close)
					if next == -1 {
						end = -1
					} else {
						end = next + offset
					}
					continue
				}
				expr.Write(src[offset:end])
				break
			}
			if end == -1 {
				// No matching close token: emit the remainder unchanged.
				out.Write(src[start:])
				offset = len(src)
			} else {
				out.WriteString(p.Handler(expr.String()))
				offset = end + len(p.Close)
			}
		}
		if offset >= len(src) {
			break
		}
		next := strings.Index(text[offset:], p.Open)
		if next == -1 {
			start = -1
		} else {
			start = next + offset
		}
	}
	if offset < len(src) {
		out.Write(src[offset:])
	}
	return out.String()
}

// Parse is a convenience for one-off scans that don't need to reuse a Parser.
func Parse(open, close string, handler Handler, text string) string {
	return New(open, close, handler).Parse(text)
}
