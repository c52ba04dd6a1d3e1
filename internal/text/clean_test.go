package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trailing whitespace per line",
			in:   "Line with trailing space.   \n   Another line.   ",
			want: "Line with trailing space.\nAnother line.",
		},
		{
			name: "multiple inner spaces collapse",
			in:   "too   many    spaces",
			want: "too many spaces",
		},
		{
			name: "empty lines removed",
			in:   "first\n\n\n\nsecond\n\n",
			want: "first\nsecond",
		},
		{
			name: "replacement character dropped",
			in:   "he�llo � world",
			want: "hello world",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "whitespace only",
			in:   "  \n\t \n ",
			want: "",
		},
		{
			name: "tabs normalize to single spaces",
			in:   "a\tb\t\tc",
			want: "a b c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}
