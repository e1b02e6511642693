package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "trims and lowercases",
			input:    "  Jane.Doe@Example.COM  ",
			expected: "jane.doe@example.com",
		},
		{
			name:     "gmail dots stripped",
			input:    "jane.doe@gmail.com",
			expected: "janedoe@gmail.com",
		},
		{
			name:     "gmail plus alias dropped",
			input:    "Jane.Doe+work@gmail.com",
			expected: "janedoe@gmail.com",
		},
		{
			name:     "googlemail treated like gmail",
			input:    "j.a.n.e+spam@googlemail.com",
			expected: "jane@googlemail.com",
		},
		{
			name:     "dots kept for other domains",
			input:    "jane.doe@acme.io",
			expected: "jane.doe@acme.io",
		},
		{
			name:     "plus kept for other domains",
			input:    "jane+lead@acme.io",
			expected: "jane+lead@acme.io",
		},
		{
			name:     "no at sign returned as-is",
			input:    "not-an-email",
			expected: "not-an-email",
		},
		{
			name:     "two at signs returned as-is",
			input:    "a@b@c.com",
			expected: "a@b@c.com",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEmail(tt.input))
		})
	}
}

func TestNormalizeEmailIdempotent(t *testing.T) {
	inputs := []string{
		"Jane.Doe+work@gmail.com",
		"jane.doe@acme.io",
		"not-an-email",
		"a@b@c.com",
		"  MIXED@Case.Org ",
		"",
	}

	for _, in := range inputs {
		once := NormalizeEmail(in)
		assert.Equal(t, once, NormalizeEmail(once), "normalize(normalize(x)) must equal normalize(x) for %q", in)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "", NormalizePhone("no digits here"))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"John Smith Jr.", "john smith"},
		{"  Mary   Jane  O'Brien ", "mary jane obrien"},
		{"ROBERT JONES III", "robert jones"},
		{"Dr. Amy Lee", "dr amy lee"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeName(tt.input))
	}
}

func TestNormalizeCompanyDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://www.acme.io/about", "acme.io"},
		{"Acme.IO", "acme.io"},
		{"sales@acme.io", "acme.io"},
		{"Acme Corp", "acme corp"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeCompanyDomain(tt.input))
	}
}

func TestApplyUnknownNormalizerReturnsInput(t *testing.T) {
	assert.Equal(t, "Value", Apply("Value", "does-not-exist"))
}
