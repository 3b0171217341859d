package report

import "testing"

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"entities", "Tom &amp; Jerry &lt;3 &quot;quoted&quot;", `Tom & Jerry <3 "quoted"`},
		{"fences stripped", "```json\n{}\n```", "json\n{}\n"},
		{"emoji tagged", "⚠️ mold found ✅", "[WARNING] mold found [OK]"},
		{"warning without selector", "⚠ mold", "[WARNING] mold"},
		{"unknown emoji untouched", "🦄 ok", "🦄 ok"},
		{"plain text", "nothing to do", "nothing to do"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanText(tc.in); got != tc.want {
				t.Fatalf("cleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
