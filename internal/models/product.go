package models

import (
	"strings"
	"time"
)

// Field identifies one extractable location on a product or login page.
type Field string

const (
	FieldProductList   Field = "product_list"
	FieldProductLink   Field = "product_link"
	FieldProductName   Field = "product_name"
	FieldPrice         Field = "price"
	FieldOptions       Field = "options"
	FieldThumbnail     Field = "thumbnail"
	FieldDetailImages  Field = "detail_images"
	FieldLoginID       Field = "login_id"
	FieldLoginPassword Field = "login_password"
	FieldLoginButton   Field = "login_button"
)

// SelectorMap maps fields to selector strings in the browser's query dialect.
// Once detection has run the map is treated as immutable for the rest of the
// crawl; every product page is queried with the same selectors.
type SelectorMap map[Field]string

func (m SelectorMap) Get(f Field) (string, bool) {
	sel, ok := m[f]
	return sel, ok && sel != ""
}

// Clone returns a copy so stage results can be merged without mutating the
// baseline map.
func (m SelectorMap) Clone() SelectorMap {
	out := make(SelectorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MergeOver lays m's entries over base and returns the result. Base entries
// survive for any field m did not resolve.
func (m SelectorMap) MergeOver(base SelectorMap) SelectorMap {
	out := base.Clone()
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Stage records which detection stage produced a selector set.
type Stage string

const (
	StageStructuredData Stage = "structured_data"
	StageMetaTags       Stage = "meta_tags"
	StageHeuristicDom   Stage = "heuristic_dom"
	StageDefault        Stage = "default"
)

// DetectionResult is produced once per site and read-only afterward.
type DetectionResult struct {
	Selectors SelectorMap `json:"selectors"`
	Stage     Stage       `json:"stage"`
}

// Option is a single purchasable variant.
type Option struct {
	Label      string `json:"label"`
	PriceDelta int    `json:"price_delta"`
}

// ProductRecord is one successfully extracted product. Immutable once built.
type ProductRecord struct {
	URL             string    `json:"url"`
	Name            string    `json:"name"`
	PriceRaw        string    `json:"price_raw"`
	Price           int       `json:"price"` // normalized KRW, already adjusted
	Options         []Option  `json:"options,omitempty"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	DetailImageURLs []string  `json:"detail_image_urls,omitempty"`
	DetailHTML      string    `json:"-"`
	ExtractedAt     time.Time `json:"extracted_at"`
}

// MaxDetailImages caps how many detail image URLs a record may carry.
const MaxDetailImages = 10

// NormalizedName is the dedup key: lowercased, whitespace-trimmed.
func (p *ProductRecord) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(p.Name))
}

func (p *ProductRecord) Validate() []string {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if p.Price <= 0 {
		problems = append(problems, "price must be positive")
	}
	if len(p.DetailImageURLs) > MaxDetailImages {
		problems = append(problems, "too many detail images")
	}
	return problems
}
