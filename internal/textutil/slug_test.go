package textutil

import "testing"

func TestSlug(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Brand Guidelines", "brand-guidelines"},
		{"punctuation collapses", "Q4 -- Launch!! (final)", "q4-launch-final"},
		{"diacritics fold", "\u00c9t\u00e9 Caf\u00e9", "ete-cafe"},
		{"leading trailing junk", "  ***Hero Shot***  ", "hero-shot"},
		{"digits kept", "IMG 20260815 001", "img-20260815-001"},
		{"empty", "   ", ""},
		{"only symbols", "!!!", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Slug(tc.input); got != tc.want {
				t.Fatalf("Slug(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSplitExt(t *testing.T) {
	cases := []struct {
		input string
		stem  string
		ext   string
	}{
		{"hero.PNG", "hero", ".png"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".hidden", ".hidden", ""},
	}
	for _, tc := range cases {
		stem, ext := SplitExt(tc.input)
		if stem != tc.stem || ext != tc.ext {
			t.Fatalf("SplitExt(%q) = %q,%q want %q,%q", tc.input, stem, ext, tc.stem, tc.ext)
		}
	}
}
