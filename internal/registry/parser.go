package registry

import (
	"strings"

	"github.com/luckybingo/bingo-bot/internal/domain"
)

// ParseDelimited converts a plain-text import body into records. Each line is
// `method,reference[,amount[,notes]]`, comma or pipe separated. Amounts are
// in ETB with optional decimals and stored in minor units. Blank lines and
// `#` comments are ignored; malformed amounts leave the amount unset rather
// than dropping the record.
func ParseDelimited(body string) []Record {
	var records []Record

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sep := ","
		if strings.Contains(line, "|") {
			sep = "|"
		}

		parts := strings.Split(line, sep)
		rec := Record{}
		if len(parts) > 0 {
			rec.Method = strings.TrimSpace(parts[0])
		}
		if len(parts) > 1 {
			rec.Reference = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			rec.Amount = parseAmountCents(parts[2])
		}
		if len(parts) > 3 {
			rec.Notes = strings.TrimSpace(strings.Join(parts[3:], sep))
		}

		records = append(records, rec)
	}

	return records
}

// parseAmountCents parses a decimal ETB amount into cents, returning zero for
// anything unparseable or negative.
func parseAmountCents(raw string) int64 {
	cents, ok := domain.AmountToCents(raw)
	if !ok {
		return 0
	}

	return cents
}
