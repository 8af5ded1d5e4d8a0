package hooks

import "testing"

func TestLookupFindsRegisteredRevisions(t *testing.T) {
	for _, title := range []string{"EXAMPLE_REV_AXX", "EXAMPLE_REV_BXX"} {
		h, ok := Lookup(title)
		if !ok {
			t.Fatalf("Lookup(%q) not found", title)
		}
		if got := h.Offsets().GameTitle; got != title {
			t.Errorf("Offsets().GameTitle = %q, want %q", got, title)
		}
	}
}

func TestLookupMissingTitle(t *testing.T) {
	if _, ok := Lookup("NOT_A_REAL_TITLE"); ok {
		t.Fatal("Lookup of unregistered title returned ok=true")
	}
}

func TestRegisterOverwritesByTitle(t *testing.T) {
	before, ok := Lookup("EXAMPLE_REV_AXX")
	if !ok {
		t.Fatal("EXAMPLE_REV_AXX missing before re-register")
	}
	Register(before)
	after, ok := Lookup("EXAMPLE_REV_AXX")
	if !ok {
		t.Fatal("EXAMPLE_REV_AXX missing after re-register")
	}
	if after.Offsets().GameTitle != before.Offsets().GameTitle {
		t.Fatalf("GameTitle changed across re-register: %q != %q", after.Offsets().GameTitle, before.Offsets().GameTitle)
	}
}
