// Package classify decides the business role of an invoice from its text.
package classify

import (
	"strings"

	"facturas/internal/normalize"
	"facturas/pkg/models"
)

// KeywordTable maps each invoice type to the phrases that indicate it. Phrases are
// matched after folding, so accents and case do not matter.
type KeywordTable map[models.InvoiceType][]string

// DefaultKeywordTable returns the Spanish and English cues used for Colombian invoices.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		models.InvoiceTypeSale: {
			"factura de venta", "factura electronica de venta", "cliente", "venta",
			"vendido a", "facturar a", "senor(es)", "senores", "adquiriente", "adquirente",
			"customer", "bill to", "sale", "sold to",
		},
		models.InvoiceTypePurchase: {
			"factura de compra", "documento soporte", "orden de compra", "proveedor",
			"compra", "vendedor", "supplier", "vendor", "purchase", "purchase order",
		},
		models.InvoiceTypeUtilityService: {
			"servicios publicos", "servicio publico", "empresa de servicios", "energia",
			"acueducto", "alcantarillado", "aseo", "gas natural", "kwh", "m3", "consumo",
			"periodo facturado", "lectura actual", "lectura anterior", "medidor", "estrato",
			"epm", "enel", "codensa", "vanti", "utility", "electricity", "water bill",
		},
	}
}

// Classification is the outcome of scoring a document.
type Classification struct {
	Type   models.InvoiceType         `json:"invoice_type"`
	Scores map[models.InvoiceType]int `json:"scores"`
	// LowConfidence is set when no cue matched and Type is the default.
	LowConfidence bool `json:"low_confidence"`
	// Tie is set when two or more types shared the best score.
	Tie bool `json:"tie"`
}

// Classifier scores text against a keyword table.
type Classifier struct {
	table    map[models.InvoiceType][]string
	fallback models.InvoiceType
}

// New creates a classifier over table. Ties and documents without cues resolve to sale.
func New(table KeywordTable) *Classifier {
	folded := make(map[models.InvoiceType][]string, len(table))
	for t, phrases := range table {
		for _, p := range phrases {
			if p = normalize.Fold(p); p != "" {
				folded[t] = append(folded[t], p)
			}
		}
	}
	return &Classifier{table: folded, fallback: models.InvoiceTypeSale}
}

// NewDefault creates a classifier over DefaultKeywordTable.
func NewDefault() *Classifier {
	return New(DefaultKeywordTable())
}

// Classify counts keyword occurrences per type and picks the highest score.
// On a tie, or when nothing matched, the result is sale.
func (c *Classifier) Classify(text string) Classification {
	folded := normalize.Fold(text)

	scores := make(map[models.InvoiceType]int, len(models.InvoiceTypes))
	for _, t := range models.InvoiceTypes {
		for _, phrase := range c.table[t] {
			scores[t] += countPhrase(folded, phrase)
		}
	}

	best, bestScore, tie := c.fallback, 0, false
	for _, t := range models.InvoiceTypes {
		switch s := scores[t]; {
		case s > bestScore:
			best, bestScore, tie = t, s, false
		case s == bestScore && s > 0:
			tie = true
		}
	}

	result := Classification{Type: best, Scores: scores}
	switch {
	case bestScore == 0:
		result.Type = c.fallback
		result.LowConfidence = true
	case tie:
		result.Type = c.fallback
		result.Tie = true
	}
	return result
}

// countPhrase counts whole-word occurrences of phrase in text.
func countPhrase(text, phrase string) int {
	count := 0
	for offset := 0; ; {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return count
		}
		start := offset + idx
		end := start + len(phrase)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			count++
		}
		offset = start + 1
	}
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 0x80)
}
