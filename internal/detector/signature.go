package detector

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ElementSignature builds a stable CSS locator for a node, preferring id,
// then tag plus the sorted class list, then the bare tag. Classes are sorted
// so the same element always yields the same signature.
func ElementSignature(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	tag := goquery.NodeName(sel)
	if tag == "" {
		return ""
	}
	if id, ok := sel.Attr("id"); ok && id != "" {
		return tag + "#" + id
	}
	if class, ok := sel.Attr("class"); ok && strings.TrimSpace(class) != "" {
		classes := strings.Fields(class)
		sort.Strings(classes)
		return tag + "." + strings.Join(classes, ".")
	}
	return tag
}
