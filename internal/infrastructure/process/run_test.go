package process

import (
	"context"
	"strings"
	"testing"
)

func TestRun_ReportsMissingBinary(t *testing.T) {
	err := Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "definitely-not-a-real-binary-xyz failed") {
		t.Fatalf("expected command name in error, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	if Available("definitely-not-a-real-binary-xyz") {
		t.Fatalf("expected missing binary to be unavailable")
	}
}

func TestTail_BoundsOutput(t *testing.T) {
	long := strings.Repeat("x", maxDiagnostic*2)
	got := Tail("  " + long + "  ")
	if len(got) != maxDiagnostic+3 || !strings.HasPrefix(got, "...") {
		t.Fatalf("unexpected tail length %d", len(got))
	}
	if Tail(" short ") != "short" {
		t.Fatalf("expected short output trimmed only")
	}
}
