package detector

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// optionControlSelectors enumerate the select controls considered as option
// pickers. Quantity and payment selects are screened out by the option text
// filter rather than the selector itself.
var optionControlSelectors = []string{
	"select[name*=\"option\"]", ".option select", ".options select",
	"select[name*=\"product\"]", "select",
}

// exactOptionNoise are full texts of placeholder entries.
var exactOptionNoise = []string{
	"선택", "-- 선택 --", "옵션선택", "옵션을 선택해주세요",
	"- [필수] 옵션을 선택해 주세요 -", "-------------------",
	"인터넷뱅킹 바로가기", "선택해주세요", "선택하세요",
}

// partialOptionNoise marks bank/payment/delivery entries. Containment only
// rejects short texts, so a long legitimate option naming a color plus "배송"
// survives.
var partialOptionNoise = []string{
	"은행", "계좌", "결제", "카드", "배송", "수령",
	"pay", "bank", "delivery", "shipping", "account", "method",
}

// IsValidOption reports whether a select entry looks like a real purchasable
// variant rather than a placeholder or payment row.
func IsValidOption(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || utf8.RuneCountInString(trimmed) <= 1 {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range exactOptionNoise {
		if trimmed == phrase || lower == strings.ToLower(phrase) {
			return false
		}
	}
	if utf8.RuneCountInString(lower) <= 10 {
		for _, phrase := range partialOptionNoise {
			if strings.Contains(lower, phrase) {
				return false
			}
		}
	}
	return true
}

// findOptions picks the select control most likely to hold product variants.
// A control qualifies only when more than one entry is valid and at least
// half of its entries are; among qualifiers the highest absolute valid count
// wins.
func (s *Scorer) findOptions(doc *goquery.Document) (string, bool) {
	bestSelector := ""
	bestCount := 0

	for _, selector := range optionControlSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			opts := sel.Find("option")
			total := opts.Length()
			if total <= 1 {
				return true
			}
			valid := 0
			opts.Each(func(_ int, o *goquery.Selection) {
				if IsValidOption(o.Text()) {
					valid++
				}
			})
			if valid <= 1 || float64(valid)/float64(total) < 0.5 {
				return true
			}
			if valid > bestCount {
				bestCount = valid
				bestSelector = selector
			}
			return true
		})
		// A specific pattern that produced a qualifier beats falling through
		// to the bare select sweep.
		if bestSelector != "" && selector != "select" {
			break
		}
	}

	return bestSelector, bestSelector != ""
}
