package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitAuthors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "initials rejoined and trailing others",
			in:   "Smith, J., Doe, A. and others",
			want: []string{"Smith, J.", "Doe, A.", "others"},
		},
		{
			name: "leading others repositioned",
			in:   "others, Lee, K.",
			want: []string{"Lee, K.", "others"},
		},
		{
			name: "plain and-separated names",
			in:   "Ana Rivera and Bo Chen",
			want: []string{"Ana Rivera", "Bo Chen"},
		},
		{
			name: "comma separated full names",
			in:   "Ana Rivera, Bo Chen, Chidi Okafor",
			want: []string{"Ana Rivera", "Bo Chen", "Chidi Okafor"},
		},
		{
			name: "others in the middle",
			in:   "Rivera, A., others, Chen, B.",
			want: []string{"Rivera, A.", "Chen, B.", "others"},
		},
		{
			name: "duplicate names collapsed",
			in:   "Ana Rivera, Ana Rivera and Bo Chen",
			want: []string{"Ana Rivera", "Bo Chen"},
		},
		{
			name: "empty input",
			in:   "  ",
			want: nil,
		},
		{
			name: "case-insensitive others",
			in:   "Rivera, A. and Others",
			want: []string{"Rivera, A.", "others"},
		},
		{
			name: "multi-initial surnames",
			in:   "van der Berg, J. P., Doe, A.",
			want: []string{"van der Berg, J. P.", "Doe, A."},
		},
		{
			name: "trailing year and link text dropped",
			in:   "Ana Rivera, Bo Chen, 2025. [abs][pdf][bib]",
			want: []string{"Ana Rivera", "Bo Chen"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SplitAuthors(tt.in))
		})
	}
}
