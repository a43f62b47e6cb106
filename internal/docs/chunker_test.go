package docs

import (
	"reflect"
	"testing"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "blank line separated",
			in:   "first paragraph\n\nsecond paragraph",
			want: []string{"first paragraph", "second paragraph"},
		},
		{
			name: "whitespace-only separator lines",
			in:   "one\n   \ntwo\n\t\nthree",
			want: []string{"one", "two", "three"},
		},
		{
			name: "single newline keeps paragraph together",
			in:   "line one\nline two",
			want: []string{"line one\nline two"},
		},
		{
			name: "leading and trailing blanks dropped",
			in:   "\n\nmiddle\n\n",
			want: []string{"middle"},
		},
		{
			name: "empty input",
			in:   "",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitParagraphs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitParagraphs(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTopicKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "first-seen order, lower-cased, deduped",
			in:   "Coffee roasting notes: coffee beans and Roasting curves",
			want: []string{"coffee", "roasting", "notes", "beans", "and", "curves"},
		},
		{
			name: "urls contribute nothing",
			in:   "see https://example.com/deep/path for details",
			want: []string{"see", "for", "details"},
		},
		{
			name: "short words excluded",
			in:   "it is an ok day outside",
			want: []string{"day", "outside"},
		},
		{
			name: "capped at eight",
			in:   "alpha bravo charlie delta echo foxtrot golf hotel india juliet",
			want: []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"},
		},
		{
			name: "word-free fallback",
			in:   "12 34 :: !!",
			want: []string{"general"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopicKeywords(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopicKeywords(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
