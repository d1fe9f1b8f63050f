// Package normalize cleans raw invoice text before classification and extraction.
//
// Raw text arrives from OCR engines, PDF text layers and copy-paste, so it mixes
// encodings, line endings and number formats. Normalize is total: any input string
// yields a normalized string.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var (
	wordPattern = regexp.MustCompile(`\S+`)

	// Tokens that look numeric but may carry OCR letter confusions.
	ocrDigitPattern = regexp.MustCompile(`\b[0-9OolI][0-9OolI.,]*[0-9OolI]\b`)

	// Numeric tokens with an optional currency marker.
	amountPattern = regexp.MustCompile(`(?:(US\$|COP\s?\$?|\$|€)\s?)?(\d(?:[\d.,]*\d)?)`)

	ocrDigitReplacer = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1")
)

// Normalize returns text with repaired encoding, consistent line breaks, trimmed lines,
// fixed OCR digit confusions and amounts rewritten in dot-decimal form without currency markers.
// Tokens that touch '-' or '/' are left untouched so dates and identifiers survive.
func Normalize(raw string) string {
	text := repairEncoding(raw)
	text = norm.NFC.String(text)
	text = strings.Map(mapSpace, text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", "  ")
	text = tidyLines(text)
	text = fixOCRDigits(text)
	return canonicalizeAmounts(text)
}

// repairEncoding decodes stray Windows-1252 bytes and undoes UTF-8 text that was
// read as Latin-1 ("Ã©" for "é").
func repairEncoding(s string) string {
	if !utf8.ValidString(s) {
		var b strings.Builder
		b.Grow(len(s))
		for i := 0; i < len(s); {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.WriteRune(charmap.Windows1252.DecodeByte(s[i]))
				i++
				continue
			}
			b.WriteRune(r)
			i += size
		}
		s = b.String()
	}

	if !strings.ContainsAny(s, "ÃÂ") {
		return s
	}
	return wordPattern.ReplaceAllStringFunc(s, func(word string) string {
		if !strings.ContainsAny(word, "ÃÂ") {
			return word
		}
		repaired, err := charmap.Windows1252.NewEncoder().String(word)
		if err != nil || !utf8.ValidString(repaired) {
			return word
		}
		return repaired
	})
}

func mapSpace(r rune) rune {
	switch {
	case r == '\n' || r == '\r' || r == '\t':
		return r
	case r == '\u200b' || r == '\ufeff':
		return -1
	case unicode.Is(unicode.Zs, r):
		return ' '
	}
	return r
}

// tidyLines trims every line and collapses runs of blank lines into one.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, line)
			continue
		}
		blank = false
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// fixOCRDigits replaces letters commonly misread for digits, but only inside tokens
// that are already mostly digits.
func fixOCRDigits(s string) string {
	return ocrDigitPattern.ReplaceAllStringFunc(s, func(token string) string {
		digits, letters := 0, 0
		for _, r := range token {
			switch {
			case r >= '0' && r <= '9':
				digits++
			case r == 'O' || r == 'o' || r == 'l' || r == 'I':
				letters++
			}
		}
		if letters == 0 || digits < 2 || letters > digits {
			return token
		}
		return ocrDigitReplacer.Replace(token)
	})
}

func canonicalizeAmounts(s string) string {
	matches := amountPattern.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		hasSymbol := m[2] >= 0
		num := s[m[4]:m[5]]

		if !standalone(s, start, end) {
			continue
		}
		if !hasSymbol && !strings.ContainsAny(num, ".,") {
			continue
		}
		canonical, ok := canonicalAmount(num)
		if !ok {
			continue
		}

		b.WriteString(s[last:start])
		b.WriteString(canonical)
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// standalone reports whether s[start:end] is not glued to a date, identifier or word.
func standalone(s string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:start])
		if prev == '-' || prev == '/' || prev == '.' || prev == ',' || unicode.IsLetter(prev) || unicode.IsDigit(prev) {
			return false
		}
	}
	if end < len(s) {
		next, _ := utf8.DecodeRuneInString(s[end:])
		if next == '-' || next == '/' || unicode.IsLetter(next) || unicode.IsDigit(next) {
			return false
		}
	}
	return true
}
