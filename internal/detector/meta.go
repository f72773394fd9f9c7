package detector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaehyunk/mallscraper/internal/models"
)

// metaProperties maps OpenGraph / product meta properties to the fields they
// resolve. First property to yield a non-empty content wins per field.
var metaProperties = []struct {
	field models.Field
	props []string
}{
	{models.FieldProductName, []string{"og:title", "twitter:title"}},
	{models.FieldPrice, []string{"product:price:amount", "og:price:amount"}},
	{models.FieldThumbnail, []string{"og:image", "twitter:image"}},
}

// detectMetaTags resolves fields from social-preview meta tags. The selector
// recorded for a field is the meta tag itself; extraction reads its content
// attribute instead of element text. Price values are gated on plausibility
// since many malls stamp 0 into the amount tag.
func (d *Detector) detectMetaTags(doc *goquery.Document) (models.SelectorMap, bool) {
	found := models.SelectorMap{}

	for _, entry := range metaProperties {
		for _, prop := range entry.props {
			content, ok := metaContent(doc, prop)
			if !ok {
				continue
			}
			if entry.field == models.FieldPrice && !priceIsPlausible(content) {
				continue
			}
			found[entry.field] = fmt.Sprintf(`meta[property="%s"]`, prop)
			break
		}
	}

	if len(found) < 2 {
		return nil, false
	}
	return found, true
}

func metaContent(doc *goquery.Document, property string) (string, bool) {
	selector := fmt.Sprintf(`meta[property="%s"], meta[name="%s"]`, property, property)
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return "", false
	}
	content := strings.TrimSpace(node.AttrOr("content", ""))
	return content, content != ""
}
