package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDisplay(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"100.00%", "100%"},
		{"12.340円", "12.34円"},
		{"5.件", "5件"},
		{"3.50", "3.5"},
		{"1,234.000円", "1,234円"},
		{"7.10000", "7.1"},
		{"0.00%", "0%"},
		{"50.00% 12.50円", "50% 12.5円"},
		{"8.20　件", "8.2　件"},
		{"12.345", "12.345"},
		{"1.005%", "1.005%"},
		{"コンバージョン率", "コンバージョン率"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeDisplay(c.in), "NormalizeDisplay(%q)", c.in)
	}
}

func TestNormalizeValuePassesNonStringsThrough(t *testing.T) {
	assert.Equal(t, 42, NormalizeValue(42))
	assert.Equal(t, 1.5, NormalizeValue(1.5))
	assert.Nil(t, NormalizeValue(nil))
	assert.Equal(t, "100%", NormalizeValue("100.00%"))
}
