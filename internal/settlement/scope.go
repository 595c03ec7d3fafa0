package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/models"
)

type ScopeKind string

const (
	ScopeAll     ScopeKind = "all"
	ScopeDaily   ScopeKind = "daily"
	ScopeWeekly  ScopeKind = "weekly"
	ScopeMonthly ScopeKind = "monthly"
	ScopeYear    ScopeKind = "year"
	ScopeCustom  ScopeKind = "custom"
)

// Scope selects sessions by date relative to today. Custom scopes use From
// and To as inclusive bounds; a zero bound is open.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// All is the scope covering every session.
var All = Scope{Kind: ScopeAll}

// ParseScope reads "all", "daily", "weekly", "monthly", "year", or a custom
// range written "YYYY-MM-DD..YYYY-MM-DD" (either side may be empty).
func ParseScope(raw string) (Scope, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch ScopeKind(raw) {
	case "", ScopeAll:
		return All, nil
	case ScopeDaily, ScopeWeekly, ScopeMonthly, ScopeYear:
		return Scope{Kind: ScopeKind(raw)}, nil
	}

	from, to, ok := strings.Cut(raw, "..")
	if !ok {
		return Scope{}, errs.Invalid("scope", "unknown scope %q", raw)
	}
	s := Scope{Kind: ScopeCustom}
	var err error
	if from != "" {
		if s.From, err = models.ParseDay(from); err != nil {
			return Scope{}, errs.Invalid("scope", "bad start date %q", from)
		}
	}
	if to != "" {
		if s.To, err = models.ParseDay(to); err != nil {
			return Scope{}, errs.Invalid("scope", "bad end date %q", to)
		}
	}
	if !s.From.IsZero() && !s.To.IsZero() && s.To.Before(s.From) {
		return Scope{}, errs.Invalid("scope", "end date before start date")
	}
	return s, nil
}

// Contains reports whether day falls inside the scope as seen on today.
// The weekly scope is the last seven days onward.
func (s Scope) Contains(day, today time.Time) bool {
	day, today = models.Day(day), models.Day(today)
	switch s.Kind {
	case ScopeDaily:
		return day.Equal(today)
	case ScopeWeekly:
		return !day.Before(today.AddDate(0, 0, -7))
	case ScopeMonthly:
		return day.Year() == today.Year() && day.Month() == today.Month()
	case ScopeYear:
		return day.Year() == today.Year()
	case ScopeCustom:
		if !s.From.IsZero() && day.Before(models.Day(s.From)) {
			return false
		}
		if !s.To.IsZero() && day.After(models.Day(s.To)) {
			return false
		}
		return true
	}
	return true
}

// Label is the capitalised scope name used in payout notes.
func (s Scope) Label() string {
	kind := string(s.Kind)
	if kind == "" {
		kind = string(ScopeAll)
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}

func (s Scope) String() string {
	if s.Kind != ScopeCustom {
		return s.Label()
	}
	return fmt.Sprintf("Custom %s..%s", formatBound(s.From), formatBound(s.To))
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DayLayout)
}

// Filter returns the sessions inside scope, in input order.
func Filter(sessions []models.Session, scope Scope, today time.Time) []models.Session {
	var out []models.Session
	for _, s := range sessions {
		if scope.Contains(s.Date, today) {
			out = append(out, s)
		}
	}
	return out
}

// Eligible returns the unposted sessions inside scope.
func Eligible(sessions []models.Session, scope Scope, today time.Time) []models.Session {
	var out []models.Session
	for _, s := range Filter(sessions, scope, today) {
		if !s.Posted() {
			out = append(out, s)
		}
	}
	return out
}
