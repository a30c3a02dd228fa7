package complexity

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Level
	}{
		{"empty", "", Simple},
		{"short no keywords", "draw a cat", Simple},
		{"simple keyword in medium length text", "Please make a basic chart showing how our team handles incoming tickets", Simple},
		{"two complex keywords", "microservice architecture", Complex},
		{"one complex keyword medium length", "Draw the deployment of our billing service with its three replicas please", Medium},
		{"complex wins over simple", "a simple diagram of a distributed database", Complex},
		{"case insensitive", "KUBERNETES NETWORK", Complex},
		{"keyword counted once", "pipeline pipeline pipeline pipeline with a few more words added here", Medium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_LengthBoundary(t *testing.T) {
	at200 := strings.Repeat("z", 200)
	if got := Classify(at200); got != Medium {
		t.Errorf("200 chars: got %s, want medium", got)
	}
	at201 := strings.Repeat("z", 201)
	if got := Classify(at201); got != Complex {
		t.Errorf("201 chars: got %s, want complex", got)
	}
	at49 := strings.Repeat("z", 49)
	if got := Classify(at49); got != Simple {
		t.Errorf("49 chars: got %s, want simple", got)
	}
	at50 := strings.Repeat("z", 50)
	if got := Classify(at50); got != Medium {
		t.Errorf("50 chars: got %s, want medium", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	inputs := []string{
		"",
		"a state machine for the checkout workflow",
		strings.Repeat("ü", 300),
		"simple",
	}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 10; i++ {
			if got := Classify(in); got != first {
				t.Fatalf("Classify(%q) changed between calls: %s then %s", in, first, got)
			}
		}
	}
}

func TestClassifier_CustomKeywords(t *testing.T) {
	c := NewClassifier(Keywords{
		Complex: []string{"alpha", "beta"},
		Simple:  []string{"gamma"},
	})
	if got := c.Classify("alpha beta"); got != Complex {
		t.Errorf("got %s, want complex", got)
	}
	if got := c.Classify("gamma gamma gamma gamma gamma gamma gamma gamma gamma"); got != Simple {
		t.Errorf("got %s, want simple", got)
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{Simple, "simple"},
		{Medium, "medium"},
		{Complex, "complex"},
		{Level(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %s, want %s", tt.level, got, tt.want)
		}
	}
}
