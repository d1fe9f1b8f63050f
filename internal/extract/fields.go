package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/normalize"
	"facturas/pkg/models"
)

var (
	datePattern = regexp.MustCompile(`(?i)(?:fecha(?:\s+de)?(?:\s+(?:emisi[oó]n|expedici[oó]n|factura|elaboraci[oó]n))?|invoice\s+date|date)\s*:?\s*(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{4}[-/]\d{1,2}[-/]\d{1,2})`)

	totalPattern = regexp.MustCompile(`(?im)^(?:total\s+a\s+pagar|total\s+factura|valor\s+total|gran\s+total|total\s+neto|total)\s*:?\s*(?:COP)?\s*\$?\s*(-?\d[\d.,]*)`)

	nameCut = regexp.MustCompile(`\s{2,}|\s+\|\s*|\s+(?i:nit|c\.?c\.?|rut|tel|tel[eé]fono)(?:[\s:.#]|$)`)
)

// findDate returns the first labeled date that exists on the calendar, in YYYY-MM-DD form.
func findDate(text string) (string, bool) {
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		if date, ok := normalize.CanonicalDate(m[1]); ok {
			return date, true
		}
	}
	return "", false
}

// findTotal returns the amount on the last total line. Subtotal lines never match.
func findTotal(text string) (decimal.Decimal, bool) {
	var total decimal.Decimal
	found := false
	for _, m := range totalPattern.FindAllStringSubmatch(text, -1) {
		if amount, ok := normalize.ParseAmount(strings.TrimRight(m[1], ".,")); ok {
			total, found = amount, true
		}
	}
	return total, found
}

// labelSet matches lines that introduce a value with one of its labels.
type labelSet struct {
	inline *regexp.Regexp
	alone  *regexp.Regexp
}

func newLabelSet(labels []string) *labelSet {
	sorted := append([]string(nil), labels...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	alts := make([]string, 0, len(sorted))
	for _, l := range sorted {
		if p := accentTolerant(l); p != "" {
			alts = append(alts, p)
		}
	}
	alt := strings.Join(alts, "|")
	return &labelSet{
		inline: regexp.MustCompile(`(?i)(?:^|[\s|;,])(?:` + alt + `)\s*:\s*(.*)$`),
		alone:  regexp.MustCompile(`(?i)^(?:` + alt + `)\s*:?$`),
	}
}

// accentTolerant turns a label into a case- and accent-insensitive pattern.
func accentTolerant(label string) string {
	folded := normalize.Fold(label)
	var b strings.Builder
	for _, r := range regexp.QuoteMeta(folded) {
		switch r {
		case 'a':
			b.WriteString("[aá]")
		case 'e':
			b.WriteString("[eé]")
		case 'i':
			b.WriteString("[ií]")
		case 'o':
			b.WriteString("[oó]")
		case 'u':
			b.WriteString("[uúü]")
		case 'n':
			b.WriteString("[nñ]")
		case ' ':
			b.WriteString(`\s+`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// find returns the value introduced by the first labeled line. A label that ends its
// line takes the next non-empty line.
func (s *labelSet) find(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		value, labeled := "", false
		if m := s.inline.FindStringSubmatch(line); m != nil {
			value, labeled = strings.TrimSpace(m[1]), true
		} else if s.alone.MatchString(line) {
			labeled = true
		}
		if !labeled {
			continue
		}
		if value == "" {
			for _, next := range lines[i+1:] {
				if next = strings.TrimSpace(next); next != "" {
					value = next
					break
				}
			}
		}
		if name := cleanName(value); name != "" {
			return name, true
		}
	}
	return "", false
}

func (x *Extractor) findCounterparty(text string, invoiceType models.InvoiceType) (string, bool) {
	labels, ok := x.roleLabels[invoiceType]
	if !ok {
		return "", false
	}
	return labels.find(text)
}

// cleanName cuts a counterparty value at the next column or identifier field.
func cleanName(value string) string {
	if loc := nameCut.FindStringIndex(value); loc != nil {
		value = value[:loc[0]]
	}
	return strings.Trim(strings.TrimSpace(value), ",;:-|")
}
