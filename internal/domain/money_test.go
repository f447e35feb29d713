package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luckybingo/bingo-bot/internal/domain"
)

func TestAmountToCents(t *testing.T) {
	testCases := []struct {
		name  string
		raw   string
		want  int64
		valid bool
	}{
		{name: "whole birr", raw: "50", want: 5000, valid: true},
		{name: "decimal", raw: "120.50", want: 12050, valid: true},
		{name: "whitespace trimmed", raw: "  75 ", want: 7500, valid: true},
		{name: "rounds half up", raw: "0.005", want: 1, valid: true},
		{name: "at the cap", raw: "10000000", want: 1000000000, valid: true},
		{name: "above the cap rejected", raw: "10000001"},
		{name: "overflowing input rejected", raw: "1e17"},
		{name: "zero rejected", raw: "0"},
		{name: "negative rejected", raw: "-10"},
		{name: "not a number", raw: "fifty"},
		{name: "empty", raw: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := domain.AmountToCents(tc.raw)
			assert.Equal(t, tc.valid, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatETB(t *testing.T) {
	assert.Equal(t, "50.00", domain.FormatETB(5000))
	assert.Equal(t, "120.50", domain.FormatETB(12050))
	assert.Equal(t, "0.05", domain.FormatETB(5))
	assert.Equal(t, "0.00", domain.FormatETB(0))
}
