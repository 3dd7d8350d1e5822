// internal/seeder/processor.go
package seeder

import (
	"regexp"
	"strings"
	"unicode"
)

// CellProcessor normalizes scraped reference-table cells before they reach
// the registries.
type CellProcessor struct {
	citations       *regexp.Regexp
	parenthetical   *regexp.Regexp
	multiWhitespace *regexp.Regexp
	iataCode        *regexp.Regexp
	airlineCode     *regexp.Regexp
}

func NewCellProcessor() *CellProcessor {
	return &CellProcessor{
		citations:       regexp.MustCompile(`\[\d+\]|\[[a-z]\]`),
		parenthetical:   regexp.MustCompile(`\([^)]*\)`),
		multiWhitespace: regexp.MustCompile(`\s+`),
		iataCode:        regexp.MustCompile(`\b([A-Z]{3})\b`),
		airlineCode:     regexp.MustCompile(`^([A-Z0-9]{2,3})$`),
	}
}

// CleanText strips citation markers and squeezes whitespace.
func (cp *CellProcessor) CleanText(text string) string {
	text = cp.citations.ReplaceAllString(text, "")
	text = cp.multiWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanName additionally drops parenthetical qualifiers from a place or
// carrier name.
func (cp *CellProcessor) CleanName(text string) string {
	text = cp.parenthetical.ReplaceAllString(text, "")
	return cp.CleanText(text)
}

// ExtractAirportCode pulls the first 3-letter IATA code out of a cell that
// may read "LAX / KLAX" or similar.
func (cp *CellProcessor) ExtractAirportCode(text string) string {
	m := cp.iataCode.FindStringSubmatch(cp.CleanText(text))
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractAirlineCode accepts a bare 2-3 character designator cell.
func (cp *CellProcessor) ExtractAirlineCode(text string) string {
	cell := cp.CleanText(text)
	m := cp.airlineCode.FindStringSubmatch(cell)
	if m == nil {
		return ""
	}
	// Purely numeric cells are row numbers, not designators.
	hasLetter := false
	for _, r := range m[1] {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return ""
	}
	return m[1]
}

// SplitCityCountry separates "Los Angeles, United States" style cells.
func (cp *CellProcessor) SplitCityCountry(text string) (city, country string) {
	cell := cp.CleanName(text)
	parts := strings.Split(cell, ",")
	if len(parts) == 0 {
		return "", ""
	}
	city = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		country = strings.TrimSpace(parts[len(parts)-1])
	}
	return city, country
}
