// Package id generates prefix-qualified record identities.
//
// Every record carries a TypeID string in the format "prefix_suffix", where the
// suffix is a K-sortable UUIDv7. The prefix tells which collection the record
// belongs to, which keeps backup files and logs readable.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the record type encoded in an ID.
type Prefix string

const (
	PrefixTransaction Prefix = "txn"
	PrefixLoan        Prefix = "loan"
	PrefixPayment     Prefix = "pay"
	PrefixSession     Prefix = "dlv"
)

// New generates a new ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) string {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// Parse validates s and returns its prefix.
func Parse(s string) (Prefix, error) {
	if s == "" {
		return "", fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("id: parse %q: %w", s, err)
	}
	return Prefix(tid.Prefix()), nil
}

func NewTransaction() string { return New(PrefixTransaction) }
func NewLoan() string        { return New(PrefixLoan) }
func NewPayment() string     { return New(PrefixPayment) }
func NewSession() string     { return New(PrefixSession) }
