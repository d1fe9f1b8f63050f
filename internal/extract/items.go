package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"facturas/internal/normalize"
	"facturas/pkg/models"
)

var (
	columnSplit = regexp.MustCompile(`\s{2,}|\s*\|\s*`)

	// "Description  2 x 500.00" and "Description 2 X $500.00".
	inlineItemPattern = regexp.MustCompile(`^(.+?)\s+(\d+(?:\.\d+)?)\s*[xX×*]\s*\$?\s*(\d[\d.,]*)(?:\s+.*)?$`)

	// Rows that carry totals, taxes or identifiers rather than products.
	nonItemPrefixes = []string{
		"total", "subtotal", "sub total", "iva", "impuesto", "retencion", "rete", "descuento",
		"fecha", "nit", "cliente", "proveedor", "valor total", "saldo", "cufe", "resolucion",
	}

	// "Fecha de emisión:" and similar labels. A colon after digits, as in "1:1", is not a label.
	labelPattern = regexp.MustCompile(`^\p{L}[\p{L}.()/ ]*:`)

	headerWords = []string{"descripcion", "detalle", "concepto", "producto", "item", "description"}
)

type categoryKeywords struct {
	category models.Category
	words    []string
}

// defaultCategoryKeywords infers item categories from description words. Order matters:
// the first category with a matching word wins.
func defaultCategoryKeywords() []categoryKeywords {
	return []categoryKeywords{
		{models.CategoryUtility, []string{
			"energia", "electricidad", "acueducto", "alcantarillado", "aseo", "agua", "gas natural", "kwh", "alumbrado",
		}},
		{models.CategoryFood, []string{
			"arroz", "leche", "pan", "carne", "pollo", "huevo", "fruta", "verdura", "aceite", "azucar",
			"cafe", "alimento", "comida", "queso", "frijol", "papa", "panela", "harina", "pasta", "atun",
		}},
		{models.CategoryService, []string{
			"servicio", "consultoria", "asesoria", "honorarios", "mantenimiento", "soporte", "instalacion",
			"capacitacion", "transporte", "arrendamiento", "licencia", "hosting", "diseno",
		}},
	}
}

// findItems reads tabular rows ("desc  qty  unit [total]") and inline rows ("desc 2 x 500.00").
func (x *Extractor) findItems(text string, invoiceType models.InvoiceType) []models.InvoiceLineItem {
	var items []models.InvoiceLineItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNonItemRow(line) {
			continue
		}

		desc, qty, price, ok := parseInlineItem(line)
		if !ok {
			desc, qty, price, ok = parseColumnItem(line)
		}
		if !ok {
			continue
		}

		category := x.inferCategory(desc)
		if invoiceType == models.InvoiceTypeUtilityService {
			category = models.CategoryUtility
		}
		items = append(items, models.InvoiceLineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   price,
			Category:    category,
		})
	}
	return items
}

func parseInlineItem(line string) (string, decimal.Decimal, decimal.Decimal, bool) {
	m := inlineItemPattern.FindStringSubmatch(line)
	if m == nil {
		return "", decimal.Zero, decimal.Zero, false
	}
	qty, okQty := normalize.ParseAmount(m[2])
	price, okPrice := normalize.ParseAmount(m[3])
	desc := strings.TrimSpace(m[1])
	if !okQty || !okPrice || !qty.IsPositive() || desc == "" || isNumeric(desc) {
		return "", decimal.Zero, decimal.Zero, false
	}
	return desc, qty, price, true
}

// parseColumnItem reads a row whose trailing columns are quantity, unit price and
// optionally the line total. Leading columns form the description.
func parseColumnItem(line string) (string, decimal.Decimal, decimal.Decimal, bool) {
	cols := columnSplit.Split(line, -1)
	if len(cols) < 3 {
		return "", decimal.Zero, decimal.Zero, false
	}

	firstNumeric := len(cols)
	for i := len(cols) - 1; i >= 0 && isNumeric(cols[i]); i-- {
		firstNumeric = i
	}
	numeric := cols[firstNumeric:]
	if firstNumeric == 0 || len(numeric) < 2 || len(numeric) > 3 {
		return "", decimal.Zero, decimal.Zero, false
	}

	qty, _ := normalize.ParseAmount(numeric[0])
	price, _ := normalize.ParseAmount(numeric[1])
	if !qty.IsPositive() {
		return "", decimal.Zero, decimal.Zero, false
	}

	desc := strings.TrimSpace(strings.Join(cols[:firstNumeric], " "))
	if desc == "" {
		return "", decimal.Zero, decimal.Zero, false
	}
	return desc, qty, price, true
}

func isNumeric(s string) bool {
	_, ok := normalize.ParseAmount(strings.TrimSpace(s))
	return ok
}

func isNonItemRow(line string) bool {
	folded := normalize.Fold(line)
	for _, prefix := range nonItemPrefixes {
		if strings.HasPrefix(folded, prefix) {
			return true
		}
	}
	if labelPattern.MatchString(line) {
		return true
	}
	for _, word := range headerWords {
		if strings.HasPrefix(folded, word) && !strings.ContainsAny(folded, "0123456789") {
			return true
		}
	}
	return false
}

func (x *Extractor) inferCategory(description string) models.Category {
	folded := normalize.Fold(description)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, ck := range x.categoryKeywords {
		for _, kw := range ck.words {
			if strings.Contains(kw, " ") {
				if strings.Contains(folded, kw) {
					return ck.category
				}
				continue
			}
			for _, w := range words {
				if w == kw || w == kw+"s" || w == kw+"es" {
					return ck.category
				}
			}
		}
	}
	return models.CategoryGeneral
}
