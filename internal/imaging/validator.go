// Package imaging validates, downloads, slices, and composes product images.
// Validation is a funnel: cheap URL checks first, then a HEAD size probe, then
// a bounded download of the image header for dimension checks, then a content
// hash against everything accepted earlier in the run.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jaehyunk/mallscraper/internal/run"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Policy holds the validation thresholds. Zero values are not usable; build
// one with DefaultPolicy or from config.
type Policy struct {
	MinBytes       int64
	MinDetailWidth int
	MaxAspectRatio float64 // long side / short side ceiling for detail images
	ProbeTimeout   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MinBytes:       5 * 1024,
		MinDetailWidth: 660,
		MaxAspectRatio: 10.0,
		ProbeTimeout:   10 * time.Second,
	}
}

// RelaxedWidth is the fallback width floor for sites that serve narrow detail
// images. The caller swaps it in when a page yields nothing at the strict
// floor.
const RelaxedWidth = 300

// denySubstrings reject a URL outright. UI chrome, social buttons, and the
// boilerplate info blocks every mall appends below the real detail images.
var denySubstrings = []string{
	"logo", "icon", "btn", "button", "menu", "nav", "arrow",
	"quick", "zzim", "wishlist", "banner", "common", "header",
	"footer", "popup", "close", "search", "cart", "sns",
	"facebook", "twitter", "kakao", "top_btn", "scroll", "floating",
	"_wg/", "detail_img_info", "delivery_info", "exchange_info",
	"return_info", "notice_info",
}

// allowSubstrings admit a URL when the path names a product area. URLs with a
// recognizable image extension pass without an allow hit.
var allowSubstrings = []string{
	"detail", "content", "description", "product", "item",
	"goods", "view", "main", "sub",
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// PageProbeFunc measures an image inside the live page, for CDNs that refuse
// direct HTTP requests. Returns natural width and height.
type PageProbeFunc func(ctx context.Context, url string) (w, h int, err error)

// Validator applies Policy to candidate image URLs. Safe for concurrent use.
type Validator struct {
	policy    Policy
	client    *http.Client
	rc        *run.Context
	pageProbe PageProbeFunc
	logger    *slog.Logger
}

func NewValidator(policy Policy, rc *run.Context) *Validator {
	return &Validator{
		policy: policy,
		client: &http.Client{Timeout: policy.ProbeTimeout},
		rc:     rc,
		logger: slog.Default().With("component", "image-validator"),
	}
}

// WithPageProbe installs the in-page fallback measurement. Optional.
func (v *Validator) WithPageProbe(probe PageProbeFunc) *Validator {
	v.pageProbe = probe
	return v
}

// URLAcceptable runs only the URL-shape rules, no network. Exposed separately
// so callers can pre-filter long lists before paying for probes.
func URLAcceptable(url string) bool {
	lower := strings.ToLower(url)
	if lower == "" {
		return false
	}
	for _, deny := range denySubstrings {
		if strings.Contains(lower, deny) {
			return false
		}
	}
	for _, allow := range allowSubstrings {
		if strings.Contains(lower, allow) {
			return true
		}
	}
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// Relaxed returns a validator with the fallback width floor sharing this
// validator's client and run state. Used when a page yields nothing at the
// strict floor.
func (v *Validator) Relaxed() *Validator {
	relaxed := *v
	relaxed.policy.MinDetailWidth = RelaxedWidth
	return &relaxed
}

// Validate decides whether a URL is a usable detail image. Results are cached
// on the run context, so repeated URLs cost one probe. The cache key carries
// the width floor, so a relaxed retry re-evaluates URLs the strict pass
// rejected. Content-hash dedup is recorded only on accept; a URL that fails
// earlier never consumes its hash.
func (v *Validator) Validate(ctx context.Context, url string) bool {
	key := fmt.Sprintf("%d|%s", v.policy.MinDetailWidth, url)
	if verdict, ok := v.rc.ImageVerdict(key); ok {
		return verdict
	}
	verdict := v.validate(ctx, url)
	v.rc.SetImageVerdict(key, verdict)
	return verdict
}

func (v *Validator) validate(ctx context.Context, url string) bool {
	if !URLAcceptable(url) {
		return false
	}

	if ok := v.probeSize(ctx, url); !ok {
		return false
	}

	data, cfg, err := v.fetchHeader(ctx, url)
	if err != nil {
		v.logger.Debug("image header fetch failed", "url", url, "error", err)
		return v.probeInPage(ctx, url)
	}

	if !v.dimensionsOK(cfg.Width, cfg.Height) {
		return false
	}

	// Hash the header prefix we already hold. Identical images served from
	// different URLs share the prefix, which is all dedup needs.
	if !v.rc.MarkImageHash(xxhash.Sum64(data)) {
		v.logger.Debug("duplicate image content", "url", url)
		return false
	}
	return true
}

func (v *Validator) dimensionsOK(w, h int) bool {
	if w < v.policy.MinDetailWidth || h < 1 {
		return false
	}
	ratio := float64(w) / float64(h)
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio <= v.policy.MaxAspectRatio
}

// probeSize rejects tiny files by Content-Length. Servers that omit the
// header or refuse HEAD pass through to the dimension check.
func (v *Validator) probeSize(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusMethodNotAllowed {
		return false
	}
	if resp.ContentLength > 0 && resp.ContentLength < v.policy.MinBytes {
		return false
	}
	return true
}

// headerFetchLimit bounds the partial download used for DecodeConfig. Every
// common format carries its dimensions well inside 64KB.
const headerFetchLimit = 64 * 1024

func (v *Validator) fetchHeader(ctx context.Context, url string) ([]byte, image.Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, image.Config{}, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", headerFetchLimit-1))

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, image.Config{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, image.Config{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, headerFetchLimit))
	if err != nil {
		return nil, image.Config{}, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return data, cfg, nil
}

// probeInPage is the fallback for hosts that block direct fetches. Without an
// installed probe the image is rejected.
func (v *Validator) probeInPage(ctx context.Context, url string) bool {
	if v.pageProbe == nil {
		return false
	}
	w, h, err := v.pageProbe(ctx, url)
	if err != nil {
		v.logger.Debug("in-page probe failed", "url", url, "error", err)
		return false
	}
	return v.dimensionsOK(w, h)
}
