package docid

import (
	"strings"
	"testing"
)

func TestAssign_unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Assign("resume")
		if seen[id] {
			t.Fatalf("duplicate id %q after %d assignments", id, i)
		}
		seen[id] = true
	}
}

func TestAssign_format(t *testing.T) {
	id := Assign("Jane Doe")
	if !strings.HasPrefix(id, "Jane_Doe-") {
		t.Errorf("id should start with sanitized base: %q", id)
	}
	suf := strings.TrimPrefix(id, "Jane_Doe-")
	if len(suf) != suffixLen {
		t.Errorf("suffix length = %d, want %d (%q)", len(suf), suffixLen, id)
	}
	for _, r := range suf {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("suffix should be lowercase hex: %q", suf)
			break
		}
	}
}

func TestAssign_emptyBase(t *testing.T) {
	id := Assign("   ")
	if !strings.HasPrefix(id, fallbackBase+"-") {
		t.Errorf("empty base should fall back to %q: got %q", fallbackBase, id)
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"resume.pdf", "resume"},
		{"cv/Jane Doe.pdf", "Jane Doe"},
		{"/tmp/a.b.docx", "a.b"},
		{"noext", "noext"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"  Jane   Doe  ", "Jane_Doe"},
		{"a/b\\c", "abc"},
		{"tab\there", "tab_here"},
		{"", "doc"},
		{strings.Repeat("x", 100), strings.Repeat("x", maxBaseLen)},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
