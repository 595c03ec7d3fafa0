package discord

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/NgigiN/gigledger/internal/entry"
	"github.com/NgigiN/gigledger/internal/errs"
	"github.com/NgigiN/gigledger/internal/loans"
	"github.com/NgigiN/gigledger/internal/models"
	"github.com/NgigiN/gigledger/internal/settlement"
	"github.com/NgigiN/gigledger/internal/tracker"
)

const helpText = "**Commands**\n" +
	"`!check` run the system checks\n" +
	"`!fuel` tank level and range\n" +
	"`!settle [all|daily|weekly|monthly|year|YYYY-MM-DD..YYYY-MM-DD]` post pending payouts\n" +
	"`!summary [scope]` spending by category\n" +
	"`!loans` outstanding loans\n\n" +
	"**Quick entries**\n" +
	"`session 42km total 640 cash 200 other 30`\n" +
	"`expense 120 Food/Snacks samosa run`\n" +
	"`income 500 Income/Bonus`\n" +
	"`fuel 300 2.9L`\n" +
	"or paste M-PESA messages with optional `c: Category/Sub` and `r: reason` lines."

var errAlreadyTracked = errors.New("already tracked")

func (b *Bot) command(ctx context.Context, args []string) string {
	switch strings.ToLower(args[0]) {
	case "!help":
		return helpText
	case "!check":
		return b.check(ctx)
	case "!fuel":
		return b.fuel()
	case "!settle":
		return b.settle(ctx, args[1:])
	case "!summary":
		return b.summary(ctx, args[1:])
	case "!loans":
		return b.loans(ctx)
	}
	return fmt.Sprintf("Unknown command %s. Type !help for the list.", args[0])
}

func parseScope(args []string) (settlement.Scope, error) {
	if len(args) > 1 {
		return settlement.Scope{}, errs.Invalid("scope", "expected at most one scope")
	}
	if len(args) == 0 {
		return settlement.All, nil
	}
	return settlement.ParseScope(args[0])
}

func (b *Bot) check(ctx context.Context) string {
	report, err := b.tracker.RunChecks(ctx, false)
	if err != nil {
		return fmt.Sprintf("⚠️ Some checks failed: %v", err)
	}
	if report.AllClear {
		return "✅ All systems operational. No pending alerts."
	}
	return fmt.Sprintf("Checks complete: %d alert(s), %d recurring transaction(s) processed.",
		len(report.Alerts), report.Emitted)
}

func (b *Bot) fuel() string {
	v := b.tracker.Vehicle()
	percent := decimal.Zero
	if v.Capacity.IsPositive() {
		percent = v.Current.Div(v.Capacity).Mul(decimal.NewFromInt(100))
	}
	return fmt.Sprintf("⛽ **Fuel**: %sL of %sL (%s%%)\nRange: about %s km",
		v.Current.StringFixed(2), v.Capacity.StringFixed(2), percent.StringFixed(0),
		v.Current.Mul(v.ConsumptionRate).StringFixed(0))
}

func (b *Bot) settle(ctx context.Context, args []string) string {
	scope, err := parseScope(args)
	if err != nil {
		return fmt.Sprintf("Invalid scope: %v", err)
	}
	txn, err := b.tracker.PostSettlement(ctx, scope)
	switch {
	case errors.Is(err, settlement.ErrNothingToSettle):
		return "Nothing to settle."
	case err != nil:
		return fmt.Sprintf("Failed to post settlement: %v", err)
	}
	return fmt.Sprintf("✅ Posted %s %s: %s", b.tracker.Vehicle().Money(txn.Amount), txn.Kind, txn.Note)
}

func (b *Bot) summary(ctx context.Context, args []string) string {
	scope, err := parseScope(args)
	if err != nil {
		return fmt.Sprintf("Invalid scope: %v", err)
	}
	txns, err := b.tracker.ListTransactions(ctx, tracker.TransactionFilter{Scope: scope})
	if err != nil {
		return fmt.Sprintf("Failed to get summary: %v", err)
	}
	stats, err := b.tracker.DeliveryStats(ctx, scope)
	if err != nil {
		return fmt.Sprintf("Failed to get summary: %v", err)
	}
	if len(txns) == 0 && stats.Sessions == 0 {
		return "No transactions found."
	}

	v := b.tracker.Vehicle()
	byCategory := map[string]decimal.Decimal{}
	spent, income := decimal.Zero, decimal.Zero
	for _, txn := range txns {
		if txn.Kind == models.KindIncome {
			income = income.Add(txn.Amount)
			continue
		}
		spent = spent.Add(txn.Amount)
		byCategory[txn.Category] = byCategory[txn.Category].Add(txn.Amount)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **Transaction Summary** (%s)\n\n", scope)
	for _, c := range categories {
		fmt.Fprintf(&sb, "**%s**: %s\n", c, v.Money(byCategory[c]))
	}
	fmt.Fprintf(&sb, "\n**Spent**: %s\n**Income**: %s", v.Money(spent), v.Money(income))
	if stats.Sessions > 0 {
		fmt.Fprintf(&sb, "\n\n🛵 **Deliveries**: %d sessions, %s km\nApp total %s, profit %s, pending transfer %s",
			stats.Sessions, stats.Distance.StringFixed(1), v.Money(stats.AppTotal),
			v.Money(stats.Profit), v.Money(stats.Transferable))
	}
	return sb.String()
}

func (b *Bot) loans(ctx context.Context) string {
	active, err := b.tracker.ListLoans(ctx, models.LoanActive)
	if err != nil {
		return fmt.Sprintf("Failed to get loans: %v", err)
	}
	if len(active) == 0 {
		return "No active loans."
	}
	sum, err := b.tracker.LoanSummary(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to get loans: %v", err)
	}

	v := b.tracker.Vehicle()
	var sb strings.Builder
	sb.WriteString("💸 **Active Loans**\n\n")
	for _, l := range active {
		fmt.Fprintf(&sb, "• **%s** (%s): %s outstanding\n", l.Name, l.Direction, v.Money(loans.Outstanding(l)))
	}
	fmt.Fprintf(&sb, "\n**Owed to you**: %s\n**You owe**: %s\n**Net**: %s",
		v.Money(sum.Given), v.Money(sum.Taken), v.Money(sum.Net))
	if sum.Due > 0 {
		fmt.Fprintf(&sb, "\n%d payment(s) due today", sum.Due)
	}
	return sb.String()
}

// record saves a quick entry or a batch of pasted confirmations.
func (b *Bot) record(ctx context.Context, content string) string {
	if entry.IsBatch(content) {
		return b.recordBatch(ctx, content)
	}
	e, err := entry.Parse(content)
	switch {
	case errors.Is(err, entry.ErrUnrecognized):
		return "Unrecognized entry. Type !help for the formats."
	case err != nil:
		return fmt.Sprintf("Invalid entry: %v", err)
	}
	msg, err := b.save(ctx, e)
	if err != nil {
		return fmt.Sprintf("Failed to save entry: %v", err)
	}
	return msg
}

func (b *Bot) recordBatch(ctx context.Context, content string) string {
	entries, failures := entry.ParseBatch(content)
	if len(entries) == 0 && len(failures) == 0 {
		return "No valid M-PESA transactions found in batch message"
	}

	success := 0
	for _, e := range entries {
		if _, err := b.save(ctx, e); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", e.Reference, err))
			continue
		}
		success++
	}

	var sb strings.Builder
	sb.WriteString("📊 **Batch Processing Complete**\n")
	fmt.Fprintf(&sb, "✅ **Successfully processed**: %d transactions\n", success)
	if len(failures) > 0 {
		fmt.Fprintf(&sb, "❌ **Failed**: %d transactions\n**Errors:**\n", len(failures))
		for _, err := range failures {
			fmt.Fprintf(&sb, "• %v\n", err)
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (b *Bot) save(ctx context.Context, e entry.Entry) (string, error) {
	if e.Session != nil {
		s, err := b.tracker.CreateSession(ctx, *e.Session)
		if err != nil {
			return "", err
		}
		v := b.tracker.Vehicle()
		return fmt.Sprintf("Tracked session on %s: %skm, settlement %s. Tank at %sL",
			s.Date.Format(models.DayLayout), s.Distance.String(), v.Money(s.Online), v.Current.StringFixed(2)), nil
	}

	if e.Reference != "" {
		dup, err := b.tracked(ctx, e.Reference)
		if err != nil {
			return "", err
		}
		if dup {
			return "", errAlreadyTracked
		}
	}
	txn, err := b.tracker.CreateTransaction(ctx, *e.Transaction)
	if err != nil {
		return "", err
	}
	v := b.tracker.Vehicle()
	msg := fmt.Sprintf("Tracked %s %s in %s", txn.Kind, v.Money(txn.Amount), txn.Category)
	if txn.SubCategory != "" {
		msg += "/" + txn.SubCategory
	}
	if txn.FuelLinked {
		msg += fmt.Sprintf(" (+%sL, tank at %sL)", txn.Litres.StringFixed(2), v.Current.StringFixed(2))
	}
	return msg, nil
}

// tracked reports whether an M-PESA confirmation was already recorded.
func (b *Bot) tracked(ctx context.Context, code string) (bool, error) {
	txns, err := b.tracker.ListTransactions(ctx, tracker.TransactionFilter{Search: "M-PESA " + code})
	if err != nil {
		return false, err
	}
	return len(txns) > 0, nil
}
