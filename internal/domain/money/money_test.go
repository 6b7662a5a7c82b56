package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "123.45 USD", Format(12345, "USD"))
	assert.Equal(t, "0.01 EUR", Format(1, "EUR"))
	assert.Equal(t, "100000 IDR", Format(100000, "IDR"))
	assert.Equal(t, "500 JPY", Format(500, "JPY"))
	assert.Equal(t, "1.234 KWD", Format(1234, "KWD"))
	assert.Equal(t, "-42.00 USD", Format(-4200, "USD"))
}

func TestValidCurrency(t *testing.T) {
	assert.True(t, ValidCurrency("USD"))
	assert.True(t, ValidCurrency("IDR"))
	assert.False(t, ValidCurrency("usd"))
	assert.False(t, ValidCurrency("US"))
	assert.False(t, ValidCurrency("DOLLARS"))
	assert.False(t, ValidCurrency(""))
}
