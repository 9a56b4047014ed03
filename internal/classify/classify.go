// Package classify turns raw statement descriptions into structured
// extractions using an ordered list of institution-specific pattern rules.
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Extraction is the structured result of classifying one description.
// Unset optional fields stay nil/empty.
type Extraction struct {
	Description   string
	Location      string
	Reference     string
	PurchaseDate  *time.Time
	CardLast4     *int
	ReceiptNumber *int
	PurchaseType  string
	Subtype       model.Subtype
}

// Rule pairs a description pattern with an extractor. Rules are evaluated in
// declaration order and the first match wins, so specific patterns must come
// before the generic receipt fallbacks.
type Rule struct {
	Name    string
	pattern *regexp.Regexp
	// guard rejects a regexp match before extraction. Used for the
	// duplicated-name form, which RE2 cannot express directly.
	guard   func(groups []string) bool
	extract func(groups []string) (Extraction, error)
}

// Classify runs the rule list over a description. A description matching no
// rule is not an error: it falls through to an unclassified extraction with
// the original text. A matched rule whose numeric captures fail to parse IS
// an error, since the pattern's precondition was believed satisfied.
func Classify(rules []Rule, description string) (Extraction, error) {
	for _, rule := range rules {
		groups := rule.pattern.FindStringSubmatch(description)
		if groups == nil {
			continue
		}
		if rule.guard != nil && !rule.guard(groups) {
			continue
		}
		ex, err := rule.extract(groups)
		if err != nil {
			return Extraction{}, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		return ex, nil
	}
	return Extraction{Description: description, Subtype: model.SubtypeUnclassified}, nil
}

// parseReceipt converts a receipt-number capture. Leading zeros are allowed
// and collapse ("000111" -> 111).
func parseReceipt(s string) (*int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt number %q: %w", s, err)
	}
	return &n, nil
}

// parseLast4 converts a masked-card capture to its last 4 digits.
func parseLast4(s string) (*int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("parsing card digits %q: %w", s, err)
	}
	return &n, nil
}

const (
	// cardDateLayout covers the simple card-purchase date ("14/03/2024").
	cardDateLayout = "02/01/2006"
	// purchaseDateTimeLayout covers combined date+time captures
	// ("14 Mar 2024 3:05PM").
	purchaseDateTimeLayout = "2 Jan 2006 3:04PM"
)

func parseCardDate(date string) (*time.Time, error) {
	t, err := time.Parse(cardDateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parsing purchase date %q: %w", date, err)
	}
	return &t, nil
}

func parsePurchaseDateTime(date, clock string) (*time.Time, error) {
	t, err := time.Parse(purchaseDateTimeLayout, date+" "+clock)
	if err != nil {
		return nil, fmt.Errorf("parsing purchase time %q: %w", date+" "+clock, err)
	}
	return &t, nil
}
