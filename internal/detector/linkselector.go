package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetectProductLinkSelector inspects a gallery page and returns the anchor
// selector that most product-detail links share. Anchors whose href contains
// the configured link pattern vote with their own signature (id > classes);
// the majority signature wins. The attribute selector is always a working
// fallback, so this never fails.
func DetectProductLinkSelector(doc *goquery.Document, linkPattern string) string {
	fallback := fmt.Sprintf(`a[href*="%s"]`, linkPattern)
	votes := make(map[string]int)

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !strings.Contains(href, linkPattern) {
			return
		}
		if id, ok := sel.Attr("id"); ok && id != "" {
			votes["a#"+id]++
			return
		}
		if class, ok := sel.Attr("class"); ok && strings.TrimSpace(class) != "" {
			classes := strings.Fields(class)
			sort.Strings(classes)
			votes["a."+strings.Join(classes, ".")]++
			return
		}
		votes[fallback]++
	})

	best, bestCount := fallback, 0
	for sel, count := range votes {
		if count > bestCount {
			best, bestCount = sel, count
		}
	}
	return best
}
