// Package extractor pulls structured product records out of rendered detail
// pages using the selector map produced by detection. It owns price
// normalization, option cleanup, image URL resolution, and run-wide product
// dedup.
package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaehyunk/mallscraper/internal/config"
	"github.com/jaehyunk/mallscraper/internal/detector"
	"github.com/jaehyunk/mallscraper/internal/models"
	"github.com/jaehyunk/mallscraper/internal/run"
)

// Skip sentinels. The crawl loop counts these as skipped, not failed.
var (
	ErrDuplicateProduct  = errors.New("duplicate product name")
	ErrPriceMissing      = errors.New("price not found on page")
	ErrPriceBelowMinimum = errors.New("price below configured minimum")
	ErrNameMissing       = errors.New("product name not found on page")
)

type Extractor struct {
	selectors models.SelectorMap
	price     config.PriceConfig
	rc        *run.Context
	logger    *slog.Logger
}

func New(selectors models.SelectorMap, price config.PriceConfig, rc *run.Context) *Extractor {
	return &Extractor{
		selectors: selectors,
		price:     price,
		rc:        rc,
		logger:    slog.Default().With("component", "extractor"),
	}
}

// Extract parses one product page. pageURL anchors relative image URLs.
// Duplicate names and out-of-policy prices return skip sentinels.
func (e *Extractor) Extract(html, pageURL string) (*models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	name := e.fieldText(doc, models.FieldProductName)
	if name == "" {
		return nil, ErrNameMissing
	}
	name = CleanName(name)

	record := &models.ProductRecord{
		URL:         pageURL,
		Name:        name,
		ExtractedAt: time.Now(),
	}

	raw, ok := e.extractPrice(doc)
	if !ok {
		return nil, ErrPriceMissing
	}
	record.PriceRaw = raw.text
	record.Price = NormalizePrice(raw.value, e.price.AdjustRate)
	if record.Price < e.price.Minimum {
		return nil, fmt.Errorf("%w: %d < %d", ErrPriceBelowMinimum, record.Price, e.price.Minimum)
	}

	if !e.rc.MarkName(record.NormalizedName()) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, record.Name)
	}

	record.Options = e.extractOptions(doc)
	record.ThumbnailURL = e.extractThumbnail(doc, pageURL)
	record.DetailImageURLs = e.extractDetailImages(doc, pageURL, record.ThumbnailURL)
	record.DetailHTML = extractDetailHTML(doc)

	e.logger.Debug("product extracted",
		"name", record.Name, "price", record.Price,
		"options", len(record.Options), "detail_images", len(record.DetailImageURLs))
	return record, nil
}

// fieldText reads a field's value. Meta-tag selectors carry their value in
// the content attribute; everything else uses element text.
func (e *Extractor) fieldText(doc *goquery.Document, field models.Field) string {
	selector, ok := e.selectors.Get(field)
	if !ok {
		return ""
	}
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return ""
	}
	if strings.HasPrefix(selector, "meta[") {
		return strings.TrimSpace(node.AttrOr("content", ""))
	}
	return strings.TrimSpace(node.Text())
}

// CleanName strips whitespace runs and the trailing pipe-delimited site name
// some platforms append to titles.
func CleanName(name string) string {
	if i := strings.Index(name, "|"); i > 0 {
		name = name[:i]
	}
	return strings.Join(strings.Fields(name), " ")
}

type rawPrice struct {
	text  string
	value int
}

func (e *Extractor) extractPrice(doc *goquery.Document) (rawPrice, bool) {
	selector, ok := e.selectors.Get(models.FieldPrice)
	if !ok {
		return rawPrice{}, false
	}

	var found rawPrice
	matched := false
	doc.Find(selector).EachWithBreak(func(_ int, node *goquery.Selection) bool {
		text := strings.TrimSpace(node.Text())
		if strings.HasPrefix(selector, "meta[") {
			text = strings.TrimSpace(node.AttrOr("content", ""))
		}
		v, ok := detector.ParsePriceWon(text)
		if !ok || v <= 0 {
			return true
		}
		found = rawPrice{text: text, value: v}
		matched = true
		return false
	})
	return found, matched
}

// NormalizePrice applies the markup rate and rounds up to the next 100 won.
// The epsilon keeps float noise from pushing exact multiples of 100 into the
// next bucket.
func NormalizePrice(raw int, rate float64) int {
	return int(math.Ceil(float64(raw)*rate/100.0-1e-9)) * 100
}

var optionPriceDeltaRe = regexp.MustCompile(`\(([+-]?)\s*([\d,]+)\s*원?\)`)

// extractOptions reads the option select, keeps valid variant entries, and
// splits any embedded surcharge out of the label.
func (e *Extractor) extractOptions(doc *goquery.Document) []models.Option {
	selector, ok := e.selectors.Get(models.FieldOptions)
	if !ok {
		return nil
	}

	var out []models.Option
	seen := make(map[string]struct{})
	doc.Find(selector).First().Find("option").Each(func(_ int, node *goquery.Selection) {
		text := strings.TrimSpace(node.Text())
		if !detector.IsValidOption(text) {
			return
		}
		opt := parseOption(text)
		key := strings.ToLower(opt.Label)
		if _, dup := seen[key]; dup || opt.Label == "" {
			return
		}
		seen[key] = struct{}{}
		out = append(out, opt)
	})
	return out
}

// parseOption splits "블랙 (+2,000원)" into label and surcharge. Currency
// marks are stripped from the label.
func parseOption(text string) models.Option {
	delta := 0
	if m := optionPriceDeltaRe.FindStringSubmatch(text); m != nil {
		if v, ok := detector.ParsePriceWon(m[2]); ok {
			delta = v
			if m[1] == "-" {
				delta = -delta
			}
		}
		text = strings.Replace(text, m[0], "", 1)
	}
	label := strings.ReplaceAll(text, "₩", "")
	// A trailing digit+원 run is a price leftover, not part of the label.
	label = trailingWonRe.ReplaceAllString(label, "")
	label = strings.Join(strings.Fields(label), " ")
	return models.Option{Label: label, PriceDelta: delta}
}

var trailingWonRe = regexp.MustCompile(`[\d,]+\s*원\s*$`)

func (e *Extractor) extractThumbnail(doc *goquery.Document, pageURL string) string {
	selector, ok := e.selectors.Get(models.FieldThumbnail)
	if !ok {
		return ""
	}
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return ""
	}
	if strings.HasPrefix(selector, "meta[") {
		return AbsoluteURL(node.AttrOr("content", ""), pageURL)
	}
	return AbsoluteURL(detector.ImageURL(node), pageURL)
}

// extractDetailImages collects detail image URLs in page order, resolved to
// absolute form, with the thumbnail and duplicates removed. The list is
// capped; validation happens later against the live URLs.
func (e *Extractor) extractDetailImages(doc *goquery.Document, pageURL, thumbnail string) []string {
	selector, ok := e.selectors.Get(models.FieldDetailImages)
	if !ok {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	doc.Find(selector).Each(func(_ int, node *goquery.Selection) {
		if len(out) >= models.MaxDetailImages {
			return
		}
		u := AbsoluteURL(detector.ImageURL(node), pageURL)
		if u == "" || u == thumbnail {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	})
	return out
}

// detailHTMLSelectors is the container ladder for the raw description markup,
// most platform-specific first.
var detailHTMLSelectors = []string{
	"#prdDetailContentLazy", "#prdDetailContent", "#prdDetail",
	".goods_description", ".product-description", ".prd_detail",
	".detail_content", ".description",
}

// extractDetailHTML returns the first description container with substantial
// markup. Containers under 50 characters are platform placeholders.
func extractDetailHTML(doc *goquery.Document) string {
	for _, selector := range detailHTMLSelectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		html, err := node.Html()
		if err != nil {
			continue
		}
		if len(strings.TrimSpace(html)) > 50 {
			return html
		}
	}
	return ""
}

// AbsoluteURL resolves an image reference against the page URL. Protocol
// relative references get https.
func AbsoluteURL(ref, pageURL string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}
