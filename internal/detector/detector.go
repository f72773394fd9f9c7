package detector

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaehyunk/mallscraper/internal/models"
)

// BaselineSelectors are the fallback selectors every crawl starts from. They
// cover the markup conventions of the common Korean mall platforms; detection
// stages overlay them field by field but never discard them, so a stage that
// resolves only the name still leaves working price and image selectors.
func BaselineSelectors() models.SelectorMap {
	return models.SelectorMap{
		models.FieldProductList:  `.goods-list li, .item-list li, [class*="item"], li[class*="goods"], .product-list li, .catalog li`,
		models.FieldProductName:  `.name, h1, h2, .title, .product-name, .goods-name`,
		models.FieldPrice:        `.org_price, .price, .sale_price, .cost, .amount, .product-price`,
		models.FieldOptions:      `select:nth-of-type(2), select[name*="option"], .option select`,
		models.FieldThumbnail:    `.viewImgWrap img, .product-image img, .main-image img, .thumb img`,
		models.FieldDetailImages: `.goods_description img, .product-description img, .detail img, .content img`,
	}
}

// Detector runs the staged selector detection over one sample product page.
// It is stateless between calls; a crawl constructs one and calls Detect once.
type Detector struct {
	scorer *Scorer
	logger *slog.Logger
}

func New() *Detector {
	return &Detector{
		scorer: NewScorer(),
		logger: slog.Default().With("component", "detector"),
	}
}

// Detect tries each stage in confidence order against the rendered HTML of a
// sample product page. The first stage to clear its bar supplies the result;
// its selectors are merged over the baseline. Detection runs exactly once per
// site, with no retries.
func (d *Detector) Detect(html string) (models.DetectionResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.DetectionResult{}, err
	}

	baseline := BaselineSelectors()

	if found, ok := d.detectStructuredData(doc); ok {
		d.logger.Info("selectors detected", "stage", string(models.StageStructuredData), "fields", len(found))
		return models.DetectionResult{
			Selectors: found.MergeOver(baseline),
			Stage:     models.StageStructuredData,
		}, nil
	}

	if found, ok := d.detectMetaTags(doc); ok {
		d.logger.Info("selectors detected", "stage", string(models.StageMetaTags), "fields", len(found))
		return models.DetectionResult{
			Selectors: found.MergeOver(baseline),
			Stage:     models.StageMetaTags,
		}, nil
	}

	if found, ok := d.detectHeuristic(doc); ok {
		d.logger.Info("selectors detected", "stage", string(models.StageHeuristicDom), "fields", len(found))
		return models.DetectionResult{
			Selectors: found.MergeOver(baseline),
			Stage:     models.StageHeuristicDom,
		}, nil
	}

	d.logger.Warn("no stage resolved any field, using baseline selectors")
	return models.DetectionResult{
		Selectors: baseline,
		Stage:     models.StageDefault,
	}, nil
}

// detectHeuristic is the scored-DOM stage. Each field is resolved
// independently; the stage succeeds when at least one field resolved.
func (d *Detector) detectHeuristic(doc *goquery.Document) (models.SelectorMap, bool) {
	found := models.SelectorMap{}

	if best, ok := d.scorer.Best(doc, nameProfile()); ok {
		found[models.FieldProductName] = best.Selector
	}
	if best, ok := d.scorer.Best(doc, priceProfile()); ok {
		found[models.FieldPrice] = best.Selector
	}
	if sel, ok := d.scorer.findOptions(doc); ok {
		found[models.FieldOptions] = sel
	}
	if sel, ok := d.scorer.findThumbnail(doc); ok {
		found[models.FieldThumbnail] = sel
	}
	if sel, ok := d.scorer.findDetailImages(doc); ok {
		found[models.FieldDetailImages] = sel
	}

	if len(found) == 0 {
		return nil, false
	}
	return found, true
}
