// Package urlpath turns raw HTTP request targets into decoded paths under the
// document root.
package urlpath

import "strings"

const upperhex = "0123456789ABCDEF"

// Decode percent-decodes s and turns '+' into a space.
//
// A '%' that is not followed by two hex digits is copied as is, so malformed
// escapes never fail a request. Decode does not inspect what the escapes
// produce: "%2e%2e%2f" comes back as "../" and callers that care about
// traversal must check the result themselves (see Contained).
func Decode(s string) string {
	if strings.IndexAny(s, "%+") < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 3
		case c == '+':
			b.WriteByte(' ')
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// Encode is the inverse of Decode: Decode(Encode(s)) == s for every s.
// Unreserved characters and '/' are kept, a space becomes '+', and every other
// byte (including '+' and '%') is written as an upper-case %XX escape.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c) || c == '/':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0F])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
