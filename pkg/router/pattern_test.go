package router

import "testing"

func TestPatternPriority(t *testing.T) {
	tests := []struct {
		route string
		want  int
	}{
		{"/", 1001},
		{"/about", 1011},
		{"/blog/:slug", 16},
		{"/docs/*", 10},
		{"/:a/:b", 11},
	}
	for _, tt := range tests {
		p, err := ParsePattern(tt.route)
		if err != nil {
			t.Fatalf("ParsePattern(%q): %v", tt.route, err)
		}
		if got := p.Priority(); got != tt.want {
			t.Errorf("Priority(%q) = %d, want %d", tt.route, got, tt.want)
		}
	}
}

func TestPatternMatchDecodes(t *testing.T) {
	p, err := ParsePattern("/user/:name")
	if err != nil {
		t.Fatal(err)
	}
	params, ok := p.Match([]string{"user", "Ada%20Lovelace"})
	if !ok || params["name"] != "Ada Lovelace" {
		t.Errorf("Match = %v, %v", params, ok)
	}
	if _, ok := p.Match([]string{"user", "a%2Fb"}); ok {
		t.Error("encoded slash accepted in parameter")
	}
	if _, ok := p.Match([]string{"user"}); ok {
		t.Error("missing parameter accepted")
	}
}

func TestPatternCatchAllEmpty(t *testing.T) {
	p, err := ParsePattern("/docs/*")
	if err != nil {
		t.Fatal(err)
	}
	params, ok := p.Match([]string{"docs"})
	if !ok || params["*"] != "" {
		t.Errorf("Match(/docs) = %v, %v", params, ok)
	}
}
