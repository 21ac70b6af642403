package extract

import "testing"

func TestGERequirementsCoverAllLetters(t *testing.T) {
	reqs := GERequirements()
	if len(reqs) != 8 {
		t.Fatalf("expected 8 GE categories, got %d", len(reqs))
	}
	seen := map[string]bool{}
	for _, r := range reqs {
		if r.Requirement == "" || r.Category == "" {
			t.Fatalf("incomplete requirement %+v", r)
		}
		if seen[r.Letter] {
			t.Fatalf("duplicate letter %q", r.Letter)
		}
		seen[r.Letter] = true
	}
	for _, letter := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		if !seen[letter] {
			t.Fatalf("missing GE letter %q", letter)
		}
	}
}
