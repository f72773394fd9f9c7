// Package crawler drives a full run: login, selector detection on a sample
// page, then page-by-page product extraction, image processing, and
// spreadsheet assembly.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/jaehyunk/mallscraper/internal/browser"
	"github.com/jaehyunk/mallscraper/internal/config"
	"github.com/jaehyunk/mallscraper/internal/detector"
	"github.com/jaehyunk/mallscraper/internal/export"
	"github.com/jaehyunk/mallscraper/internal/extractor"
	"github.com/jaehyunk/mallscraper/internal/imaging"
	"github.com/jaehyunk/mallscraper/internal/models"
	"github.com/jaehyunk/mallscraper/internal/profile"
	"github.com/jaehyunk/mallscraper/internal/ratelimit"
	"github.com/jaehyunk/mallscraper/internal/run"
)

// ManualLoginFunc hands control to the operator when automated login fails.
// The implementation should block until the operator finished logging in (or
// the context is cancelled) and return nil to continue the run.
type ManualLoginFunc func(ctx context.Context, loginURL string) error

// Summary is the run outcome.
type Summary struct {
	Attempted int
	Succeeded int
	Skipped   int
	Failed    int
	OutputDir string
	ExcelPath string
}

type Crawler struct {
	cfg         *config.Config
	browser     *browser.Browser
	rc          *run.Context
	profiles    *profile.Store
	limiter     ratelimit.RateLimiter
	manualLogin ManualLoginFunc
	loginSel    *detector.LoginSelectors
	logger      *slog.Logger
}

func New(cfg *config.Config, b *browser.Browser, profiles *profile.Store, manualLogin ManualLoginFunc) *Crawler {
	return &Crawler{
		cfg:         cfg,
		browser:     b,
		rc:          run.NewContext(),
		profiles:    profiles,
		limiter:     ratelimit.NewSimpleRateLimiter(cfg.Crawl.RequestDelay, cfg.Crawl.RequestDelay*2),
		manualLogin: manualLogin,
		logger:      slog.Default().With("component", "crawler"),
	}
}

// Run executes the whole crawl and writes the spreadsheet. It returns the
// summary even on partial failure; only setup-level errors abort the run.
func (c *Crawler) Run(ctx context.Context) (*Summary, error) {
	page, err := c.browser.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if c.cfg.Site.UseLogin {
		if err := c.login(ctx, page); err != nil {
			return nil, err
		}
	}

	links, linkSelector, err := c.collectAllLinks(ctx, page)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("no product links found on catalog pages")
	}
	c.logger.Info("product links collected", "count", len(links))

	detection, siteProfile, err := c.detectSelectors(ctx, page, links[0], linkSelector)
	if err != nil {
		return nil, err
	}

	outDir := filepath.Join(c.cfg.Output.BaseDir, c.rc.Stamp+c.cfg.Site.Code)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	writer, err := export.NewWriter(export.Meta{
		SiteCode:      c.cfg.Site.Code,
		BrandName:     c.cfg.Site.BrandName,
		CategoryCode:  c.cfg.Site.CategoryCode,
		Stamp:         c.rc.Stamp,
		HostBase:      c.cfg.Image.HostBase,
		HeadBannerURL: c.cfg.Image.HeadBannerURL,
		FootBannerURL: c.cfg.Image.FootBannerURL,
	})
	if err != nil {
		return nil, err
	}

	composer, err := imaging.NewComposer(imaging.ThumbnailSpec{
		BadgeTop:    c.cfg.Image.BadgeTop,
		BadgeBottom: c.cfg.Image.BadgeBottom,
		FontPath:    c.cfg.Image.FontPath,
	})
	if err != nil {
		return nil, err
	}

	ext := extractor.New(detection.Selectors, c.cfg.Price, c.rc)
	validator := imaging.NewValidator(c.policy(), c.rc).
		WithPageProbe(c.browser.InPageImageProbe(page))
	assembler := imaging.NewAssembler()

	summary := &Summary{OutputDir: outDir}
	counter := 1

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		if c.cfg.Crawl.TestMode && summary.Succeeded >= c.cfg.Crawl.TestProductCount {
			c.logger.Info("test mode product limit reached", "count", summary.Succeeded)
			break
		}

		summary.Attempted++
		record, err := c.processProduct(ctx, page, link, ext, validator, assembler, composer, writer, outDir, counter)
		switch {
		case err == nil:
			summary.Succeeded++
			counter++
			if len(siteProfile.Samples) < sampleRecordLimit {
				siteProfile.Samples = append(siteProfile.Samples, record)
			}
		case isSkip(err):
			summary.Skipped++
			c.logger.Info("product skipped", "url", link, "reason", err)
		default:
			summary.Failed++
			c.logger.Error("product failed", "url", link, "error", err)
		}
	}

	if len(siteProfile.Samples) > 0 {
		if err := c.profiles.Save(siteProfile); err != nil {
			c.logger.Warn("profile sample update failed", "error", err)
		}
	}

	excelPath := filepath.Join(outDir, c.rc.Stamp+c.cfg.Site.Code+".xlsx")
	if err := writer.Save(excelPath); err != nil {
		return summary, err
	}
	summary.ExcelPath = excelPath

	c.logger.Info("crawl finished",
		"attempted", summary.Attempted, "succeeded", summary.Succeeded,
		"skipped", summary.Skipped, "failed", summary.Failed,
		"excel", excelPath)
	return summary, nil
}

func (c *Crawler) policy() imaging.Policy {
	p := imaging.DefaultPolicy()
	p.MinBytes = c.cfg.Image.MinBytes
	p.MinDetailWidth = c.cfg.Image.MinDetailWidth
	return p
}

func isSkip(err error) bool {
	return errors.Is(err, extractor.ErrDuplicateProduct) ||
		errors.Is(err, extractor.ErrPriceMissing) ||
		errors.Is(err, extractor.ErrPriceBelowMinimum) ||
		errors.Is(err, extractor.ErrNameMissing)
}

// login performs automated login, falling back to the operator when the
// attempt does not stick.
func (c *Crawler) login(ctx context.Context, page playwright.Page) error {
	if err := c.browser.NavigateWithRetry(page, c.cfg.Site.LoginURL, 3); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	html, err := page.Content()
	if err != nil {
		return err
	}
	sel, err := detector.DetectLoginForm(html)
	if err != nil {
		return err
	}
	c.loginSel = &sel
	c.logger.Info("login form detected",
		"container", sel.Container, "username", sel.Username)

	if err := c.submitLogin(page, sel); err != nil {
		c.logger.Warn("automated login failed", "error", err)
		return c.suspendForManualLogin(ctx)
	}

	if !c.loginSucceeded(page) {
		c.logger.Warn("login did not stick, page still shows the login form")
		return c.suspendForManualLogin(ctx)
	}

	c.logger.Info("login complete", "url", page.URL())
	return nil
}

func (c *Crawler) submitLogin(page playwright.Page, sel detector.LoginSelectors) error {
	scope := sel.Container
	if scope == "" {
		scope = "body"
	}
	username := page.Locator(scope).Locator(sel.Username).First()
	if err := username.Fill(c.cfg.Site.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	password := page.Locator(scope).Locator(sel.Password).First()
	if err := password.Fill(c.cfg.Site.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	if sel.Submit != "" {
		if err := page.Locator(scope).Locator(sel.Submit).First().Click(); err != nil {
			return fmt.Errorf("click submit: %w", err)
		}
	} else if err := password.Press("Enter"); err != nil {
		return fmt.Errorf("press enter: %w", err)
	}

	page.WaitForTimeout(2000)
	return nil
}

// loginSucceeded checks whether a password field is still visible; a page
// that keeps asking for one did not accept the credentials.
func (c *Crawler) loginSucceeded(page playwright.Page) bool {
	count, err := page.Locator(`input[type="password"]`).Count()
	if err != nil {
		return false
	}
	return count == 0
}

// suspendForManualLogin blocks on the operator callback. Without a callback
// the run fails with ErrManualLoginRequired.
func (c *Crawler) suspendForManualLogin(ctx context.Context) error {
	if c.manualLogin == nil {
		return detector.ErrManualLoginRequired
	}
	c.logger.Info("suspending for manual login")
	if err := c.manualLogin(ctx, c.cfg.Site.LoginURL); err != nil {
		return fmt.Errorf("manual login: %w", err)
	}
	c.logger.Info("manual login confirmed, resuming")
	return nil
}

// collectAllLinks walks the configured catalog page range and gathers product
// detail links in page order. The link selector is detected on the first
// page and reused.
func (c *Crawler) collectAllLinks(ctx context.Context, page playwright.Page) ([]string, string, error) {
	var links []string
	seen := make(map[string]struct{})
	linkSelector := ""

	for p := c.cfg.Crawl.StartPage; p <= c.cfg.Crawl.EndPage; p++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
		pageURL := c.cfg.Site.CatalogURL(p)
		if err := c.browser.NavigateWithRetry(page, pageURL, 3); err != nil {
			c.logger.Warn("catalog page unreachable", "page", p, "error", err)
			continue
		}

		html, err := page.Content()
		if err != nil {
			return nil, "", err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, "", err
		}

		if linkSelector == "" {
			linkSelector = detector.DetectProductLinkSelector(doc, c.cfg.Site.ProductLinkPattern)
			c.logger.Info("product link selector detected", "selector", linkSelector)
		}

		pageLinks := LinksFromDoc(doc, linkSelector, pageURL, c.cfg.Site.ProductLinkPattern)
		added := 0
		for _, l := range pageLinks {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			links = append(links, l)
			added++
		}
		c.logger.Info("catalog page scanned", "page", p, "links", added)
	}

	return links, linkSelector, nil
}

// LinksFromDoc extracts product hrefs matched by selector, resolved against
// the catalog page URL. Anchors whose href lost the link pattern (the
// selector can be broader than the vote that produced it) are dropped.
func LinksFromDoc(doc *goquery.Document, selector, pageURL, linkPattern string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" || !strings.Contains(href, linkPattern) {
			return
		}
		out = append(out, extractor.AbsoluteURL(href, pageURL))
	})
	return out
}

// sampleRecordLimit caps how many extracted records the profile keeps for
// operator review.
const sampleRecordLimit = 3

// detectSelectors runs staged detection against one sample product page and
// persists the resulting profile.
func (c *Crawler) detectSelectors(ctx context.Context, page playwright.Page, sampleURL, linkSelector string) (*models.DetectionResult, *profile.Profile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.browser.NavigateWithRetry(page, sampleURL, 3); err != nil {
		return nil, nil, fmt.Errorf("open sample product: %w", err)
	}
	if err := c.browser.ScrollThrough(page); err != nil {
		c.logger.Warn("sample page scroll failed", "error", err)
	}

	html, err := page.Content()
	if err != nil {
		return nil, nil, err
	}
	result, err := detector.New().Detect(html)
	if err != nil {
		return nil, nil, fmt.Errorf("selector detection: %w", err)
	}
	result.Selectors[models.FieldProductLink] = linkSelector
	if c.loginSel != nil {
		for field, sel := range c.loginSel.SelectorMap() {
			result.Selectors[field] = sel
		}
	}

	siteProfile := &profile.Profile{
		Site:      c.cfg.Site.Code,
		Stage:     result.Stage,
		Selectors: result.Selectors,
		Login:     c.loginSel,
		SampleURL: sampleURL,
	}
	if err := c.profiles.Save(siteProfile); err != nil {
		c.logger.Warn("profile save failed", "error", err)
	}

	c.logger.Info("selectors ready", "stage", string(result.Stage))
	return &result, siteProfile, nil
}

// processProduct handles one product end to end: extract, validate images,
// compose the thumbnail, assemble the detail slices, append the row.
func (c *Crawler) processProduct(
	ctx context.Context,
	page playwright.Page,
	link string,
	ext *extractor.Extractor,
	validator *imaging.Validator,
	assembler *imaging.Assembler,
	composer *imaging.Composer,
	writer *export.Writer,
	outDir string,
	counter int,
) (*models.ProductRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := c.browser.NavigateWithRetry(page, link, 3); err != nil {
		return nil, fmt.Errorf("open product: %w", err)
	}
	if err := c.browser.ScrollThrough(page); err != nil {
		c.logger.Warn("product page scroll failed", "url", link, "error", err)
	}

	html, err := page.Content()
	if err != nil {
		return nil, err
	}
	record, err := ext.Extract(html, page.URL())
	if err != nil {
		return nil, err
	}

	valid := validator.FilterValid(ctx, record.DetailImageURLs, c.cfg.Image.ProbeWorkers)
	if len(valid) == 0 && len(record.DetailImageURLs) > 0 {
		c.logger.Info("retrying detail images with relaxed width floor",
			"name", record.Name)
		valid = validator.Relaxed().FilterValid(ctx, record.DetailImageURLs, c.cfg.Image.ProbeWorkers)
	}
	if len(valid) == 0 {
		c.logger.Info("no detail images passed, keeping row without slices",
			"name", record.Name)
	} else {
		if _, err := assembler.Assemble(ctx, valid, filepath.Join(outDir, "output"), counter); err != nil {
			return nil, fmt.Errorf("assemble detail images: %w", err)
		}
	}

	if record.ThumbnailURL != "" {
		if err := c.composeThumbnail(ctx, composer, record, outDir, counter); err != nil {
			c.logger.Warn("thumbnail composition failed",
				"name", record.Name, "error", err)
		}
	}

	if err := writer.AppendProduct(record, counter); err != nil {
		return nil, err
	}
	c.logger.Info("product processed",
		"name", record.Name, "price", record.Price, "counter", counter)
	return record, nil
}

func (c *Crawler) composeThumbnail(ctx context.Context, composer *imaging.Composer, record *models.ProductRecord, outDir string, counter int) error {
	img, err := fetchImage(ctx, record.ThumbnailURL)
	if err != nil {
		return err
	}
	crDir := filepath.Join(outDir, "cr")
	if err := os.MkdirAll(crDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(crDir, fmt.Sprintf("%d_cr.jpg", counter))
	return composer.ComposeToFile(img, record.Name, path)
}

func fetchImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	return img, nil
}
