package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_GroupsAndSortsPages(t *testing.T) {
	raw := []string{
		"[Source: report.pdf, Page 3]",
		"[Source: notes.txt]",
		"[Source: report.pdf, Page 1]",
		"[Source: report.pdf, Page 3]",
	}

	got := Normalize(raw)

	require.Len(t, got, 2)
	assert.Equal(t, Citation{Filename: "report.pdf", Pages: []int{1, 3}}, got[0])
	assert.Equal(t, Citation{Filename: "notes.txt", Pages: []int{}}, got[1])
}

func TestNormalize_FirstAppearanceOrder(t *testing.T) {
	raw := []string{
		"[Source: b.txt]",
		"[Source: a.txt]",
		"[Source: b.txt]",
	}

	got := Normalize(raw)

	require.Len(t, got, 2)
	assert.Equal(t, "b.txt", got[0].Filename)
	assert.Equal(t, "a.txt", got[1].Filename)
}

func TestNormalize_StripsPathPrefixes(t *testing.T) {
	raw := []string{
		`[Source: /tmp/uploads/manual.pdf, Page 2]`,
		`[Source: C:\docs\manual.pdf, Page 5]`,
	}

	got := Normalize(raw)

	require.Len(t, got, 1)
	assert.Equal(t, "manual.pdf", got[0].Filename)
	assert.Equal(t, []int{2, 5}, got[0].Pages)
}

func TestNormalize_TolerantParsing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Citation
	}{
		{
			name: "no wrapper",
			raw:  "report.pdf, Page 7",
			want: Citation{Filename: "report.pdf", Pages: []int{7}},
		},
		{
			name: "parenthesized page",
			raw:  "[Source: slides.pptx (Page 4)]",
			want: Citation{Filename: "slides.pptx", Pages: []int{4}},
		},
		{
			name: "case insensitive prefix",
			raw:  "[SOURCE: data.xlsx]",
			want: Citation{Filename: "data.xlsx", Pages: []int{}},
		},
		{
			name: "filename containing page is not a page indicator",
			raw:  "[Source: mypage.pdf]",
			want: Citation{Filename: "mypage.pdf", Pages: []int{}},
		},
		{
			name: "comma metadata without page number",
			raw:  "[Source: report.pdf, draft]",
			want: Citation{Filename: "report.pdf", Pages: []int{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]string{tt.raw})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestNormalize_SkipsEmptyEntries(t *testing.T) {
	got := Normalize([]string{"", "   ", "[Source: ]", "[Source: a.txt]"})

	require.Len(t, got, 1)
	assert.Equal(t, "a.txt", got[0].Filename)
}

func TestNormalize_EmptyInput(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]string{}))
}
