package detector

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaehyunk/mallscraper/internal/models"
)

// structuredProduct holds the schema.org Product fields we care about.
type structuredProduct struct {
	Name  string
	Price string
	Image string
}

// detectStructuredData parses embedded JSON-LD blocks looking for a
// schema.org Product and translates its values back into DOM locators so the
// extraction driver can reuse them on every product page. A field counts as
// resolved only when a locator could be derived.
func (d *Detector) detectStructuredData(doc *goquery.Document) (models.SelectorMap, bool) {
	product, ok := findJSONLDProduct(doc)
	if !ok {
		return nil, false
	}

	found := models.SelectorMap{}

	if product.Name != "" {
		if sel, ok := locatorForText(doc, product.Name, nameSelectors); ok {
			found[models.FieldProductName] = sel
		} else {
			found[models.FieldProductName] = `[itemprop="name"], .name, h1`
		}
	}
	if product.Price != "" {
		if sel, ok := locatorForPrice(doc, product.Price); ok {
			found[models.FieldPrice] = sel
		} else {
			found[models.FieldPrice] = `[itemprop="price"], .price`
		}
	}
	if product.Image != "" {
		if sel, ok := locatorForImage(doc, product.Image); ok {
			found[models.FieldThumbnail] = sel
		}
	}

	if len(found) < 2 {
		return nil, false
	}
	return found, true
}

func findJSONLDProduct(doc *goquery.Document) (structuredProduct, bool) {
	var product structuredProduct
	found := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return true
		}
		if p, ok := extractProductNode(raw, 0); ok {
			product = p
			found = true
			return false
		}
		return true
	})

	return product, found
}

// extractProductNode walks arbitrarily shaped JSON-LD (single object, array,
// @graph) looking for an object typed Product.
func extractProductNode(raw any, depth int) (structuredProduct, bool) {
	if depth > 4 {
		return structuredProduct{}, false
	}
	switch node := raw.(type) {
	case []any:
		for _, item := range node {
			if p, ok := extractProductNode(item, depth+1); ok {
				return p, true
			}
		}
	case map[string]any:
		if typeMatches(node["@type"], "Product") {
			return productFromMap(node), true
		}
		if graph, ok := node["@graph"]; ok {
			return extractProductNode(graph, depth+1)
		}
	}
	return structuredProduct{}, false
}

func typeMatches(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func productFromMap(node map[string]any) structuredProduct {
	p := structuredProduct{
		Name:  stringValue(node["name"]),
		Image: stringValue(node["image"]),
	}
	switch offers := node["offers"].(type) {
	case map[string]any:
		p.Price = stringValue(offers["price"])
	case []any:
		if len(offers) > 0 {
			if first, ok := offers[0].(map[string]any); ok {
				p.Price = stringValue(first["price"])
			}
		}
	}
	return p
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) > 0 {
			return stringValue(t[0])
		}
	case map[string]any:
		// image objects carry the URL under "url"
		return stringValue(t["url"])
	}
	return ""
}

// locatorForText finds a DOM node whose visible text equals the structured
// value and synthesizes its signature. Candidate tables are scanned first;
// failing that, common heading/text containers.
func locatorForText(doc *goquery.Document, value string, candidates []string) (string, bool) {
	value = strings.TrimSpace(value)
	scan := append([]string{}, candidates...)
	scan = append(scan, "h1", "h2", "h3", "p", "span", "div", "strong")
	for _, selector := range scan {
		var sig string
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if strings.TrimSpace(sel.Text()) == value {
				sig = ElementSignature(sel)
				return false
			}
			return true
		})
		if sig != "" {
			return sig, true
		}
	}
	return "", false
}

// locatorForPrice matches by digits rather than raw text, since the DOM
// rendering of "12345" is usually "12,345원".
func locatorForPrice(doc *goquery.Document, price string) (string, bool) {
	want, ok := ParsePriceWon(price)
	if !ok {
		return "", false
	}
	for _, selector := range priceSelectors {
		var sig string
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if got, ok := ParsePriceWon(sel.Text()); ok && got == want {
				sig = ElementSignature(sel)
				return false
			}
			return true
		})
		if sig != "" {
			return sig, true
		}
	}
	return "", false
}

// locatorForImage finds the img whose src ends with the structured image
// URL's path and returns its container signature scoped to img.
func locatorForImage(doc *goquery.Document, imageURL string) (string, bool) {
	tail := imageURL
	if i := strings.LastIndex(imageURL, "/"); i >= 0 && i < len(imageURL)-1 {
		tail = imageURL[i+1:]
	}
	var sig string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := ImageURL(sel)
		if src == "" || !strings.Contains(src, tail) {
			return true
		}
		parent := sel.Parent()
		if psig := ElementSignature(parent); psig != "" && psig != "body" {
			sig = psig + " img"
		} else {
			sig = ElementSignature(sel)
		}
		return false
	})
	return sig, sig != ""
}
