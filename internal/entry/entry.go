// Package entry parses quick-entry chat lines into tracker commands.
//
//	session 42km total 640 cash 200 other 30 date 2024-03-09
//	expense 120 Food/Snacks samosa run
//	income 500 Income/Bonus
//	fuel 300 2.9L shell highway
//
// A pasted M-PESA confirmation, optionally followed by "c: Category/Sub" and
// "r: reason" lines, becomes an expense.
package entry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/tracker"
)

// ErrUnrecognized means the text is not a quick entry at all.
var ErrUnrecognized = errors.New("unrecognized entry")

// Entry is one parsed command; exactly one of Session and Transaction is set.
type Entry struct {
	Session     *tracker.SessionInput
	Transaction *tracker.TransactionInput
	// Reference is the M-PESA code for pasted confirmations.
	Reference string
}

const number = `(\d+(?:\.\d+)?)`

var (
	sessionRe = regexp.MustCompile(`(?i)^session\s+` + number + `\s*km\s+total\s+` + number +
		`(?:\s+cash\s+` + number + `)?(?:\s+other\s+` + number + `)?(?:\s+date\s+(\d{4}-\d{2}-\d{2}))?$`)
	ledgerRe = regexp.MustCompile(`(?i)^(expense|income)\s+` + number + `\s+([^/\s]+)(?:/(\S+))?(?:\s+(.+))?$`)
	fuelRe   = regexp.MustCompile(`(?i)^fuel\s+` + number + `(?:\s+` + number + `\s*(?:l|litres?|liters?)\b)?(?:\s+(.+))?$`)
)

// Parse reads a single quick entry.
func Parse(text string) (Entry, error) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)

	switch {
	case IsMPesa(first):
		return fromMPesa(first, strings.Split(rest, "\n"))
	case sessionRe.MatchString(first):
		return parseSession(sessionRe.FindStringSubmatch(first))
	case ledgerRe.MatchString(first):
		return parseLedger(ledgerRe.FindStringSubmatch(first))
	case fuelRe.MatchString(first):
		return parseFuel(fuelRe.FindStringSubmatch(first))
	}
	return Entry{}, ErrUnrecognized
}

func parseSession(m []string) (Entry, error) {
	distance, err := decimal.NewFromString(m[1])
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse distance: %w", err)
	}
	total, err := decimal.NewFromString(m[2])
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse total: %w", err)
	}
	in := tracker.SessionInput{Distance: &distance, Total: &total, Date: m[5]}
	if in.Cash, err = optional(m[3]); err != nil {
		return Entry{}, fmt.Errorf("failed to parse cash: %w", err)
	}
	if in.OtherCosts, err = optional(m[4]); err != nil {
		return Entry{}, fmt.Errorf("failed to parse other costs: %w", err)
	}
	return Entry{Session: &in}, nil
}

func parseLedger(m []string) (Entry, error) {
	amount, err := decimal.NewFromString(m[2])
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse amount: %w", err)
	}
	in := tracker.TransactionInput{
		Kind:        models.Kind(strings.ToLower(m[1])),
		Amount:      amount,
		Category:    words(m[3]),
		SubCategory: words(m[4]),
		Note:        strings.TrimSpace(m[5]),
	}
	return Entry{Transaction: &in}, nil
}

func parseFuel(m []string) (Entry, error) {
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse amount: %w", err)
	}
	in := tracker.TransactionInput{
		Kind:        models.KindExpense,
		Amount:      amount,
		Category:    models.CategoryTransport,
		SubCategory: models.SubFuel,
		Note:        strings.TrimSpace(m[3]),
	}
	if m[2] != "" {
		litres, err := decimal.NewFromString(m[2])
		if err != nil {
			return Entry{}, fmt.Errorf("failed to parse litres: %w", err)
		}
		in.Litres = &litres
	}
	return Entry{Transaction: &in}, nil
}

func fromMPesa(msg string, metadata []string) (Entry, error) {
	p, err := ParseMPesa(msg)
	if err != nil {
		return Entry{}, err
	}
	category, sub, reason := parseMetadata(metadata)
	if category == "" {
		category = "Others"
		sub = "Misc"
	}
	note := "M-PESA " + p.Code + " to " + p.Recipient
	if reason != "" {
		note += ": " + reason
	}
	in := tracker.TransactionInput{
		Kind:        models.KindExpense,
		Amount:      p.Amount.Add(p.Cost),
		Category:    category,
		SubCategory: sub,
		Date:        p.DateTime.Format(models.DayLayout),
		Note:        note,
	}
	return Entry{Transaction: &in, Reference: p.Code}, nil
}

// ParseBatch reads a paste holding several M-PESA confirmations. Failures are
// reported per block and do not stop the rest.
func ParseBatch(text string) ([]Entry, []error) {
	var entries []Entry
	var errList []error
	for i, b := range SplitBatch(text) {
		e, err := fromMPesa(b.Message, b.Metadata)
		if err != nil {
			errList = append(errList, fmt.Errorf("transaction %d: %w", i+1, err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, errList
}

// IsBatch reports whether text holds more than one M-PESA confirmation.
func IsBatch(text string) bool {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if IsMPesa(line) {
			n++
		}
	}
	return n > 1
}

func optional(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// words turns "Tea_/_Coffee" style tokens back into spaced names.
func words(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
}
