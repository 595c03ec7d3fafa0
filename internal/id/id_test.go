package id_test

import (
	"strings"
	"testing"

	"github.com/NgigiN/gigledger/internal/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() string
		prefix id.Prefix
	}{
		{"Transaction", id.NewTransaction, id.PrefixTransaction},
		{"Loan", id.NewLoan, id.PrefixLoan},
		{"Payment", id.NewPayment, id.PrefixPayment},
		{"Session", id.NewSession, id.PrefixSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn()
			if !strings.HasPrefix(got, string(tt.prefix)+"_") {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, got)
			}
			prefix, err := id.Parse(got)
			if err != nil {
				t.Fatalf("parse %q: %v", got, err)
			}
			if prefix != tt.prefix {
				t.Fatalf("expected parsed prefix %q, got %q", tt.prefix, prefix)
			}
		})
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		v := id.NewTransaction()
		if _, ok := seen[v]; ok {
			t.Fatalf("duplicate id %q", v)
		}
		seen[v] = struct{}{}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not an id", "txn_"} {
		if _, err := id.Parse(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}
