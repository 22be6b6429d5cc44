package core

import "testing"

func TestParseEnvironment(t *testing.T) {
	cases := map[string]Environment{
		"production":  Production,
		" PROD ":      Production,
		"staging":     Staging,
		"test":        Testing,
		"testing":     Testing,
		"":            Development,
		"development": Development,
		"qa":          Development,
	}
	for in, want := range cases {
		if got := ParseEnvironment(in); got != want {
			t.Errorf("ParseEnvironment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvironmentDecode(t *testing.T) {
	var e Environment
	if err := e.Decode("Production"); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !e.IsProduction() {
		t.Fatalf("expected production, got %q", e)
	}
}
