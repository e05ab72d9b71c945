// Package codec holds the small JSON text helpers used to embed prompt text in
// request bodies and to pull string fields out of model server replies without
// a full decode. The extractor is tolerant and not general: it handles the
// generate/chat/tags reply shapes and nothing more.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"aihttpanalyzer/internal/core"

	"github.com/bytedance/sonic"
)

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Escape makes text safe to embed inside a JSON string literal. Control
// characters without a short escape are written as \u00XX.
func Escape(text string) string {
	if text == "" {
		return ""
	}
	escaped := escaper.Replace(text)
	if !hasBareControl(escaped) {
		return escaped
	}

	var b strings.Builder
	b.Grow(len(escaped) + 8)
	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if c < 0x20 {
			fmt.Fprintf(&b, `\u%04x`, c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func hasBareControl(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 {
			return true
		}
	}
	return false
}

// Unescape reverses JSON string escape sequences. Valid string contents are
// decoded by sonic; invalid ones go through unescapeLenient, which keeps
// unknown or truncated sequences verbatim.
func Unescape(text string) string {
	if !strings.Contains(text, `\`) {
		return text
	}

	var decoded string
	if err := sonic.UnmarshalString(`"`+text+`"`, &decoded); err == nil {
		return decoded
	}
	return unescapeLenient(text)
}

func unescapeLenient(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\\' || i+1 >= len(text) {
			b.WriteByte(c)
			continue
		}

		i++
		switch text[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '/':
			b.WriteByte('/')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			r, consumed, ok := decodeUnicodeEscape(text[i+1:])
			if !ok {
				b.WriteString(`\u`)
				continue
			}
			b.WriteRune(r)
			i += consumed
		default:
			b.WriteByte('\\')
			b.WriteByte(text[i])
		}
	}

	return b.String()
}

// decodeUnicodeEscape decodes the hex digits following `\u`, joining UTF-16
// surrogate pairs. It returns the number of bytes consumed after the `u`.
func decodeUnicodeEscape(s string) (rune, int, bool) {
	if len(s) < 4 {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	r := rune(v)

	if utf16.IsSurrogate(r) && len(s) >= 10 && s[4] == '\\' && s[5] == 'u' {
		if lo, err := strconv.ParseUint(s[6:10], 16, 16); err == nil {
			if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
				return pair, 10, true
			}
		}
	}
	return r, 4, true
}

// ExtractField returns the value of the first `"fieldName":` occurrence in body.
// Quoted values are read up to the closing unescaped quote and unescaped;
// bare values are read up to the next comma or closing bracket.
func ExtractField(body, fieldName string) (string, bool) {
	pos, ok := findValueStart(body, fieldName, 0)
	if !ok {
		return "", false
	}

	rest := body[pos:]
	if strings.HasPrefix(rest, `"`) {
		if raw, _, closed := scanQuoted(rest[1:]); closed {
			return Unescape(raw), true
		}
		// unterminated string: keep the lossy comma cut
		rest = rest[1:]
	}

	end := strings.IndexAny(rest, ",}]")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest[:end]), `"`)), true
}

// ExtractAll returns every quoted value of `"fieldName":"..."` in appearance order.
func ExtractAll(body, fieldName string) []string {
	values := []string{}

	from := 0
	for {
		pos, ok := findValueStart(body, fieldName, from)
		if !ok {
			return values
		}
		from = pos
		if !strings.HasPrefix(body[pos:], `"`) {
			continue
		}

		raw, consumed, closed := scanQuoted(body[pos+1:])
		if !closed {
			return values
		}
		values = append(values, Unescape(raw))
		from = pos + 1 + consumed
	}
}

// BuildMessages renders the two-element system/user chat message array.
func BuildMessages(systemText, userText string) string {
	return fmt.Sprintf(`[{"role":"%s","content":"%s"},{"role":"%s","content":"%s"}]`,
		core.RoleSystem, Escape(systemText),
		core.RoleUser, Escape(userText),
	)
}

// findValueStart locates `"fieldName"` followed by optional whitespace and a
// colon at or after from, returning the offset of the first non-space byte of
// the value.
func findValueStart(body, fieldName string, from int) (int, bool) {
	marker := `"` + fieldName + `"`

	for from < len(body) {
		idx := strings.Index(body[from:], marker)
		if idx < 0 {
			return 0, false
		}
		pos := skipSpace(body, from+idx+len(marker))
		if pos < len(body) && body[pos] == ':' {
			return skipSpace(body, pos+1), true
		}
		from += idx + len(marker)
	}
	return 0, false
}

// scanQuoted reads up to the closing unescaped quote. s starts after the
// opening quote; consumed includes the closing quote.
func scanQuoted(s string) (raw string, consumed int, closed bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return s[:i], i + 1, true
		}
	}
	return s, len(s), false
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
