package module

import "testing"

func TestParse(t *testing.T) {
	for _, valid := range []string{"teaching", "simulation", "advisor"} {
		kind, err := Parse(valid)
		if err != nil {
			t.Fatalf("Parse(%q) err: %v", valid, err)
		}
		if string(kind) != valid {
			t.Fatalf("Parse(%q) = %q", valid, kind)
		}
	}

	for _, invalid := range []string{"", "Teaching", "tutor"} {
		if _, err := Parse(invalid); err == nil {
			t.Fatalf("Parse(%q) should fail", invalid)
		}
	}
}

func TestStorageKey(t *testing.T) {
	if got := KindAdvisor.StorageKey(); got != "sessions_advisor" {
		t.Fatalf("unexpected storage key: %q", got)
	}
}
