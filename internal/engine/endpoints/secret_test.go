package endpoints

import (
	"strings"
	"testing"
)

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	b, _ := GenerateSecret()

	if !strings.HasPrefix(a, "whsec_") || len(a) != len("whsec_")+64 {
		t.Errorf("Unexpected secret format %q", a)
	}
	if a == b {
		t.Error("Expected distinct secrets")
	}
}

func TestMatchSecret(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		presented string
		want      bool
	}{
		{"match", "whsec_abc", "whsec_abc", true},
		{"mismatch", "whsec_abc", "whsec_abd", false},
		{"prefix only", "whsec_abc", "whsec_", false},
		{"empty token", "whsec_abc", "", false},
		{"empty stored", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchSecret(tt.stored, tt.presented); got != tt.want {
				t.Errorf("MatchSecret(%q, %q) = %v, want %v", tt.stored, tt.presented, got, tt.want)
			}
		})
	}
}
