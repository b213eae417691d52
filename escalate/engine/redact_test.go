package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "email",
			in:   "reach me at jane.doe+x@example.co.uk please",
			want: "reach me at <EMAIL> please",
		},
		{
			name: "card number",
			in:   "my card 4111111111111111 was declined",
			want: "my card <NUMBER> was declined",
		},
		{
			name: "short digit runs kept",
			in:   "order 12345 from 2024",
			want: "order 12345 from 2024",
		},
		{
			name: "both",
			in:   "a@b.io sent 1234567890",
			want: "<EMAIL> sent <NUMBER>",
		},
		{
			name: "clean text untouched",
			in:   "nothing sensitive here",
			want: "nothing sensitive here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.in))
		})
	}
}
