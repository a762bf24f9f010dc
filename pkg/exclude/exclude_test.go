package exclude

import "testing"

func TestDefaultPatternsExcludeDotGit(t *testing.T) {
	s := NewSet(BuildDefaultRules(nil))
	if !s.Matches(".git/config") {
		t.Fatal("expected .git/config to be excluded")
	}
	if !s.Matches("a/b/Thumbs.db") {
		t.Fatal("expected nested Thumbs.db to be excluded")
	}
	if !s.Matches("foo.tmp") {
		t.Fatal("expected *.tmp to match")
	}
	if s.Matches("photo.jpg") {
		t.Fatal("did not expect photo.jpg excluded")
	}
}

func TestCaseInsensitive(t *testing.T) {
	s := NewSet(BuildDefaultRules(nil))
	if !s.Matches("THUMBS.DB") {
		t.Fatal("expected case-insensitive match")
	}
}

func TestSlashPatternMatchesFullPath(t *testing.T) {
	s := NewSet([]string{"a/b/*.log"})
	if !s.Matches("a/b/out.log") {
		t.Fatal("expected match on full relative path")
	}
	if s.Matches("x/a/b/out.log") {
		t.Fatal("slash pattern must not match as a suffix of a deeper path")
	}
}

func TestNoSlashPatternMatchesAnySegment(t *testing.T) {
	s := NewSet([]string{"node_modules"})
	if !s.Matches("a/node_modules/x.js") {
		t.Fatal("expected segment match")
	}
	if !s.Matches("node_modules") {
		t.Fatal("expected top-level match")
	}
}

func TestExclusionMonotone(t *testing.T) {
	base := NewSet(BuildDefaultRules(nil))
	extra := NewSet(BuildDefaultRules([]string{"*.bak"}))
	paths := []string{".git/x", "a/b.bak", "normal.txt"}
	for _, p := range paths {
		if base.Matches(p) && !extra.Matches(p) {
			t.Fatalf("adding patterns reduced excluded set for %q", p)
		}
	}
}

func TestGlobMatchQuestionMark(t *testing.T) {
	s := NewSet([]string{"file?.txt"})
	if !s.Matches("file1.txt") {
		t.Fatal("expected ? to match single char")
	}
	if s.Matches("file12.txt") {
		t.Fatal("? must match exactly one character")
	}
}
