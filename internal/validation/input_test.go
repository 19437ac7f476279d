package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMediaRef(t *testing.T) {
	valid := []string{
		"/media/slips/4b0e/receipt.png",
		"https://cdn.example.com/slip.jpg",
		"http://bank.example.com/receipt?id=42",
	}
	for _, ref := range valid {
		assert.NoError(t, ValidateMediaRef("ссылка", ref), ref)
	}

	invalid := []string{
		"",
		"   ",
		"javascript:alert(1)",
		"ftp://example.com/a.png",
		"//evil.example.com/a.png",
		"/media/../etc/passwd",
		"https:///nohost",
		"/" + strings.Repeat("a", MaxMediaRefLength),
	}
	for _, ref := range invalid {
		assert.Error(t, ValidateMediaRef("ссылка", ref), ref)
	}
}

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("поле", "абв", 1, 3))
	assert.Error(t, ValidateLength("поле", "абвг", 1, 3))
	assert.Error(t, ValidateLength("поле", "", 1, 0))
	assert.NoError(t, ValidateLength("поле", "", 0, 0))
}
