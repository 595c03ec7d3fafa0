package entry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an outgoing M-PESA confirmation.
type Payment struct {
	Code      string
	Amount    decimal.Decimal
	Recipient string
	DateTime  time.Time
	Balance   decimal.Decimal
	Cost      decimal.Decimal
}

var (
	money   = `Ksh[\d,]+(?:\.\d+)?`
	mpesaRe = regexp.MustCompile(`(?i)(\w+)\s+Confirmed\.?\s+(` + money + `)\s+(sent|paid)\s+to\s+(.*?)\s*\.?\s+on\s+(\d{1,2}/\d{1,2}/\d{2})\s+at\s+(\d{1,2}:\d{2})\s?(AM|PM)\.?\s*New\s+(?:M-PESA|business)\s+balance\s+is\s+(` + money + `)\.\s*Transaction\s+cost,?\s*(` + money + `)(?:\.|\b)`)
)

// IsMPesa reports whether line looks like an M-PESA confirmation.
func IsMPesa(line string) bool {
	return strings.Contains(line, "Confirmed.") &&
		(strings.Contains(line, "sent to") || strings.Contains(line, "paid to"))
}

// ParseMPesa reads an outgoing M-PESA confirmation message.
func ParseMPesa(msg string) (*Payment, error) {
	m := mpesaRe.FindStringSubmatch(msg)
	if m == nil {
		return nil, fmt.Errorf("not a valid outgoing M-PESA message")
	}

	amount, err := parseKsh(m[2])
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	balance, err := parseKsh(m[8])
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	cost, err := parseKsh(m[9])
	if err != nil {
		return nil, fmt.Errorf("failed to parse cost: %w", err)
	}

	parts := strings.Split(m[5], "/")
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])
	stamp := fmt.Sprintf("%d-%02d-%02d %s %s", 2000+year, month, day, m[6], strings.ToUpper(m[7]))
	at, err := time.Parse("2006-01-02 3:04 PM", stamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date/time: %w", err)
	}

	recipient := strings.Join(strings.Fields(strings.TrimSuffix(m[4], ".")), " ")
	return &Payment{
		Code:      m[1],
		Amount:    amount,
		Recipient: recipient,
		DateTime:  at,
		Balance:   balance,
		Cost:      cost,
	}, nil
}

func parseKsh(raw string) (decimal.Decimal, error) {
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "Ksh"), "KSH")
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
}

// Block is one pasted message with the metadata lines that follow it.
type Block struct {
	Message  string
	Metadata []string
}

// SplitBatch groups a multi-message paste into blocks. Lines before the first
// confirmation and lines that are not metadata are dropped.
func SplitBatch(text string) []Block {
	var blocks []Block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsMPesa(line) {
			blocks = append(blocks, Block{Message: line})
			continue
		}
		if len(blocks) > 0 && isMetadata(line) {
			last := &blocks[len(blocks)-1]
			last.Metadata = append(last.Metadata, line)
		}
	}
	return blocks
}

func isMetadata(line string) bool {
	for _, prefix := range []string{"c:", "Category:", "r:", "Reason:"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// parseMetadata reads "c: Category/Sub" and "r: reason" lines.
func parseMetadata(lines []string) (category, sub, reason string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Category:"):
			category = strings.TrimSpace(strings.TrimPrefix(line, "Category:"))
		case strings.HasPrefix(line, "c:"):
			category = strings.TrimSpace(strings.TrimPrefix(line, "c:"))
		case strings.HasPrefix(line, "Reason:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "Reason:"))
		case strings.HasPrefix(line, "r:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "r:"))
		}
	}
	category, sub, _ = strings.Cut(category, "/")
	return strings.TrimSpace(category), strings.TrimSpace(sub), reason
}
