package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// The institution runs the receipt number straight into the "In <location>"
// suffix with no separating space, e.g. "Receipt 123456In SYDNEY".
var (
	reVisaForeign = regexp.MustCompile(`^(.+?) - Visa (Purchase|Refund|Purchase Correction) - Foreign Currency Amount ([A-Z]{3}) ([0-9][0-9,]*(?:\.[0-9]+)?) - Receipt (\d+)In (.+?) Date (\d{2}/\d{2}/\d{4}) Card \d{6}xxxxxx(\d{4})$`)
	reVisa        = regexp.MustCompile(`^(.+?) - Visa (Purchase|Refund|Purchase Correction) - Receipt (\d+)In (.+?) Date (\d{2}/\d{2}/\d{4}) Card \d{6}xxxxxx(\d{4})$`)

	reEftposCashOut = regexp.MustCompile(`^(.+?) - Eftpos Purchase With Cash Out \$([0-9]+(?:\.[0-9]+)?) - Receipt (\d+)In (.+?) Date (\d{1,2} [A-Z][a-z]{2} \d{4}) Time (\d{1,2}:\d{2}[AP]M) Card \d{6}xxxxxx(\d{4})$`)
	reEftpos        = regexp.MustCompile(`^(.+?) - Eftpos (Purchase|Refund) - Receipt (\d+)In (.+?) Date (\d{1,2} [A-Z][a-z]{2} \d{4}) Time (\d{1,2}:\d{2}[AP]M) Card \d{6}xxxxxx(\d{4})$`)

	reSalary = regexp.MustCompile(`^Salary - Salary Deposit - Receipt (\d+)(\D.*)$`)

	reDirectDebit = regexp.MustCompile(`^(.+?) - Direct Debit - Receipt (\d+)\s*(.*)$`)
	reTransfer    = regexp.MustCompile(`^(.+?) - Internal Transfer - Receipt (\d+)\s*(.*)$`)
	reOsko        = regexp.MustCompile(`^(.+?) - Osko Payment (?:To|From) (.+?) - Receipt (\d+)(?: Ref (.+))?$`)
	reBpay        = regexp.MustCompile(`^(.+?) - BPay Payment To Biller (.+?) - Receipt (\d+)$`)

	reAtmFee = regexp.MustCompile(`^(.+?) - ATM Direct Charge Fee \$([0-9]+(?:\.[0-9]+)?) - Receipt (\d+)In (.+?) Date (\d{1,2} [A-Z][a-z]{2} \d{4}) Time (\d{1,2}:\d{2}[AP]M) Card \d{6}xxxxxx(\d{4})$`)

	reDirectPaymentLocated = regexp.MustCompile(`^(.+?) - Receipt (\d+)In (.+?) Date (\d{1,2} [A-Z][a-z]{2} \d{4}) Time (\d{1,2}:\d{2}[AP]M) Card \d{6}xxxxxx(\d{4})$`)
	reDirectPaymentDoubled = regexp.MustCompile(`^(.+?) - (.+?) - Receipt (\d+)$`)
	reDirectPayment        = regexp.MustCompile(`^(.+?) - Receipt (\d+)$`)
)

// DefaultRules returns the full rule list in priority order. Ordering is
// load-bearing: the generic "Receipt N" fallbacks at the tail would swallow
// every card, transfer, and BPAY description if tried first.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "visa-foreign-currency",
			pattern: reVisaForeign,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[5])
				if err != nil {
					return Extraction{}, err
				}
				last4, err := parseLast4(g[8])
				if err != nil {
					return Extraction{}, err
				}
				purchased, err := parseCardDate(g[7])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   fmt.Sprintf("%s (%s %s)", g[1], g[3], g[4]),
					Location:      g[6],
					PurchaseDate:  purchased,
					CardLast4:     last4,
					ReceiptNumber: receipt,
					PurchaseType:  "Visa " + g[2],
					Subtype:       model.SubtypeVisa,
				}, nil
			},
		},
		{
			Name:    "visa",
			pattern: reVisa,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[3])
				if err != nil {
					return Extraction{}, err
				}
				last4, err := parseLast4(g[6])
				if err != nil {
					return Extraction{}, err
				}
				purchased, err := parseCardDate(g[5])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1],
					Location:      g[4],
					PurchaseDate:  purchased,
					CardLast4:     last4,
					ReceiptNumber: receipt,
					PurchaseType:  "Visa " + g[2],
					Subtype:       model.SubtypeVisa,
				}, nil
			},
		},
		{
			Name:    "eftpos-cash-out",
			pattern: reEftposCashOut,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[3])
				if err != nil {
					return Extraction{}, err
				}
				last4, err := parseLast4(g[7])
				if err != nil {
					return Extraction{}, err
				}
				purchased, err := parsePurchaseDateTime(g[5], g[6])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   fmt.Sprintf("%s (cash out $%s)", g[1], g[2]),
					Location:      g[4],
					PurchaseDate:  purchased,
					CardLast4:     last4,
					ReceiptNumber: receipt,
					PurchaseType:  "Eftpos Purchase",
					Subtype:       model.SubtypeEftpos,
				}, nil
			},
		},
		{
			Name:    "eftpos",
			pattern: reEftpos,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[3])
				if err != nil {
					return Extraction{}, err
				}
				last4, err := parseLast4(g[7])
				if err != nil {
					return Extraction{}, err
				}
				purchased, err := parsePurchaseDateTime(g[5], g[6])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1],
					Location:      g[4],
					PurchaseDate:  purchased,
					CardLast4:     last4,
					ReceiptNumber: receipt,
					PurchaseType:  "Eftpos " + g[2],
					Subtype:       model.SubtypeEftpos,
				}, nil
			},
		},
		{
			// The employer name trails the receipt digits directly, e.g.
			// "Receipt 000111ABC Corp".
			Name:    "salary-deposit",
			pattern: reSalary,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[1])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   "Salary - " + strings.TrimSpace(g[2]),
					ReceiptNumber: receipt,
					PurchaseType:  "Salary",
					Subtype:       model.SubtypeUnclassified,
				}, nil
			},
		},
		{
			Name:    "direct-debit",
			pattern: reDirectDebit,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[2])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1],
					Reference:     strings.TrimSpace(g[3]),
					ReceiptNumber: receipt,
					PurchaseType:  "Direct Debit",
					Subtype:       model.SubtypeDirectDebit,
				}, nil
			},
		},
		{
			Name:    "internal-transfer",
			pattern: reTransfer,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[2])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1],
					Reference:     strings.TrimSpace(g[3]),
					ReceiptNumber: receipt,
					PurchaseType:  "Internal Transfer",
					Subtype:       model.SubtypeTransfer,
				}, nil
			},
		},
		{
			Name:    "osko-payment",
			pattern: reOsko,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[3])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1] + " - " + g[2],
					Reference:     strings.TrimSpace(g[4]),
					ReceiptNumber: receipt,
					PurchaseType:  "Osko Payment",
					Subtype:       model.SubtypeOsko,
				}, nil
			},
		},
		{
			Name:    "bpay",
			pattern: reBpay,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[3])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1] + " - " + g[2],
					ReceiptNumber: receipt,
					PurchaseType:  "BPay Payment",
					Subtype:       model.SubtypeBpay,
				}, nil
			},
		},
		{
			Name:    "atm-fee",
			pattern: reAtmFee,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[3])
				if err != nil {
					return Extraction{}, err
				}
				last4, err := parseLast4(g[7])
				if err != nil {
					return Extraction{}, err
				}
				purchased, err := parsePurchaseDateTime(g[5], g[6])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   fmt.Sprintf("%s ($%s fee)", g[1], g[2]),
					Location:      g[4],
					PurchaseDate:  purchased,
					CardLast4:     last4,
					ReceiptNumber: receipt,
					PurchaseType:  "ATM Fee",
					Subtype:       model.SubtypeAtm,
				}, nil
			},
		},
		{
			Name:    "direct-payment-located",
			pattern: reDirectPaymentLocated,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[2])
				if err != nil {
					return Extraction{}, err
				}
				last4, err := parseLast4(g[6])
				if err != nil {
					return Extraction{}, err
				}
				purchased, err := parsePurchaseDateTime(g[4], g[5])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1],
					Location:      g[3],
					PurchaseDate:  purchased,
					CardLast4:     last4,
					ReceiptNumber: receipt,
					PurchaseType:  "Direct Payment",
					Subtype:       model.SubtypeUnclassified,
				}, nil
			},
		},
		{
			// Some terminals repeat the merchant name: "X - X - Receipt N".
			// RE2 has no backreferences, so the guard enforces equality.
			Name:    "direct-payment-doubled",
			pattern: reDirectPaymentDoubled,
			guard:   func(g []string) bool { return g[1] == g[2] },
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[3])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1],
					ReceiptNumber: receipt,
					PurchaseType:  "Direct Payment",
					Subtype:       model.SubtypeUnclassified,
				}, nil
			},
		},
		{
			Name:    "direct-payment",
			pattern: reDirectPayment,
			extract: func(g []string) (Extraction, error) {
				receipt, err := parseReceipt(g[2])
				if err != nil {
					return Extraction{}, err
				}
				return Extraction{
					Description:   g[1],
					ReceiptNumber: receipt,
					PurchaseType:  "Direct Payment",
					Subtype:       model.SubtypeUnclassified,
				}, nil
			},
		},
	}
}
