package search

import "testing"

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t"} {
		if q := Parse(in); !q.IsEmpty() {
			t.Errorf("Parse(%q) not empty", in)
		}
	}
}

func TestMatcher(t *testing.T) {
	testCases := []struct {
		query string
		name  string
		want  bool
	}{
		{"idea", "Song Ideas", true},
		{"IDEA", "song ideas", true},
		{"  riff ", "guitar riff.m4a", true},
		{"chorus", "verse.m4a", false},
		{"café", "Café demo.wav", true},
		{"", "anything", false},
	}

	for _, tc := range testCases {
		m := NewMatcher(Parse(tc.query))
		if got := m.Match(tc.name); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.query, tc.name, got, tc.want)
		}
	}
}
