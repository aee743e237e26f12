package main

import "testing"

type envReplacerFixture struct {
	Plain  string
	Env    string
	Nested struct{ Env string }
	List   []string
}

func TestReplaceEnvKeys(t *testing.T) {
	fixture := envReplacerFixture{Plain: "literal", Env: "$SECRET", List: []string{"$SECRET", "literal"}}
	fixture.Nested.Env = "$SECRET"

	getenv := func(key string) string {
		if key == "SECRET" {
			return "resolved-value"
		}
		return ""
	}

	if err := replaceEnvKeys(&fixture, getenv); err != nil {
		t.Fatalf("replaceEnvKeys: %v", err)
	}

	if fixture.Plain != "literal" {
		t.Errorf("expected non-$ field to be untouched, got %q", fixture.Plain)
	}
	if fixture.Env != "resolved-value" {
		t.Errorf("expected $SECRET to resolve, got %q", fixture.Env)
	}
	if fixture.Nested.Env != "resolved-value" {
		t.Errorf("expected nested $SECRET to resolve, got %q", fixture.Nested.Env)
	}
	if fixture.List[0] != "resolved-value" || fixture.List[1] != "literal" {
		t.Errorf("expected slice elements to resolve independently, got %v", fixture.List)
	}
}
