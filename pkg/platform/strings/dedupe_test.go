package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "empty", in: []string{}, want: []string{}},
		{name: "case variants collapse", in: []string{"A1B2", " a1b2 ", "C3"}, want: []string{"a1b2", "c3"}},
		{name: "blanks dropped", in: []string{"", "  ", "x"}, want: []string{"x"}},
		{name: "order of first occurrence", in: []string{"b", "a", "B"}, want: []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrimLower(tt.in))
		})
	}
}
