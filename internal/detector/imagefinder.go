package detector

import (
	"github.com/PuerkitoBio/goquery"
)

var thumbnailSelectors = []string{
	".viewImgWrap img", ".product-image img", ".main-image img",
	".thumb img", ".thumbnail img", "[itemprop=\"image\"]",
	".goods-image img", ".item-image img",
}

var detailImageSelectors = []string{
	"#prdDetailContentLazy img", "#prdDetailContent img",
	".goods_description img", ".product-description img",
	"#prdDetail img", "#productDetail img",
	".prd_detail img", ".product_detail img",
	".detail_content img", ".description_content img",
	".editor img", "[id*=\"detail\"] img",
}

// imageSrcAttrs is the attribute preference order for image nodes. Lazy-load
// attributes carry the full-size URL when present.
var imageSrcAttrs = []string{"data-original", "data-src", "src"}

// ImageURL extracts the best image URL from a node following the lazy-load
// attribute preference.
func ImageURL(sel *goquery.Selection) string {
	for _, attr := range imageSrcAttrs {
		if v, ok := sel.Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

// findThumbnail returns the first thumbnail pattern whose match actually
// carries an image URL.
func (s *Scorer) findThumbnail(doc *goquery.Document) (string, bool) {
	for _, selector := range thumbnailSelectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if ImageURL(node) != "" {
			return selector, true
		}
	}
	return "", false
}

// findDetailImages returns the first detail-image pattern under which at
// least one of the first few matches resolves to a real URL. Only a handful
// of nodes are inspected per pattern; a detail area with none of its leading
// images loadable is not a detail area.
func (s *Scorer) findDetailImages(doc *goquery.Document) (string, bool) {
	const inspectLimit = 5
	for _, selector := range detailImageSelectors {
		nodes := doc.Find(selector)
		if nodes.Length() == 0 {
			continue
		}
		valid := 0
		nodes.EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if i >= inspectLimit {
				return false
			}
			if ImageURL(sel) != "" {
				valid++
			}
			return true
		})
		if valid >= 1 {
			return selector, true
		}
	}
	return "", false
}
