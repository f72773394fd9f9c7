// Package detector locates product-field selectors on pages whose markup is
// unknown in advance. Candidates are enumerated from prioritized selector
// tables, filtered against noise-phrase lists, scored by an explicit rule
// table, and the best-scoring selector wins if it clears a minimum threshold.
package detector

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaehyunk/mallscraper/internal/models"
)

// Candidate is one scored DOM location. It only lives for the duration of a
// single Rank call.
type Candidate struct {
	Selector string // the candidate pattern that matched this node
	Text     string
	Score    int
}

// Rule is a single (predicate, weight) scoring signal. Rules are independent
// and summed; rejection is handled separately by the noise lists and
// validators, never by a rule.
type Rule struct {
	Name   string
	Weight int
	Match  func(selector, text string) bool
}

// FieldProfile parameterizes the scorer for one field kind.
type FieldProfile struct {
	Field        models.Field
	Selectors    []string // tried in order, most specific first
	NoiseExact   []string // UI labels that disqualify only as the whole text
	NoisePhrases []string // chrome headings that disqualify short texts by containment
	Rules        []Rule
	Validate     func(text string) bool // hard gate, e.g. price plausibility
	MinScore     int
	MinLen       int // candidate text length bounds, in runes
	MaxLen       int
}

type Scorer struct {
	logger *slog.Logger
}

func NewScorer() *Scorer {
	return &Scorer{logger: slog.Default().With("component", "scorer")}
}

// Rank enumerates and scores all candidates for a field. Candidates are
// deduplicated by normalized text (first occurrence wins) so a banner
// repeated across the page cannot stack the ranking.
func (s *Scorer) Rank(doc *goquery.Document, p FieldProfile) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})

	for _, selector := range p.Selectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text == "" {
				return
			}
			n := utf8.RuneCountInString(text)
			if n < p.MinLen || n > p.MaxLen {
				return
			}
			if isNoise(text, p.NoiseExact, p.NoisePhrases) {
				return
			}
			if p.Validate != nil && !p.Validate(text) {
				return
			}
			key := strings.ToLower(strings.Join(strings.Fields(text), " "))
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}

			score := 0
			for _, r := range p.Rules {
				if r.Match(selector, text) {
					score += r.Weight
				}
			}
			out = append(out, Candidate{Selector: selector, Text: text, Score: score})
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Best returns the winning candidate, or ok=false when nothing clears the
// acceptance threshold. A low-confidence page yields "not found", not a guess.
func (s *Scorer) Best(doc *goquery.Document, p FieldProfile) (Candidate, bool) {
	ranked := s.Rank(doc, p)
	if len(ranked) == 0 || ranked[0].Score < p.MinScore {
		return Candidate{}, false
	}
	best := ranked[0]
	s.logger.Debug("field resolved",
		"field", string(p.Field), "selector", best.Selector, "score", best.Score)
	return best, true
}

// noiseSubstringLimit bounds containment matching: product names that happen
// to embed a chrome heading must not be rejected, so containment only applies
// to short texts. Longer texts must match a phrase exactly.
const noiseSubstringLimit = 30

// isNoise rejects UI chrome. Single-word labels match only as the whole text;
// words like 브랜드 or 옵션 appear inside legitimate product names and must
// never reject them by containment.
func isNoise(text string, exact, phrases []string) bool {
	for _, label := range exact {
		if text == label {
			return true
		}
	}
	n := utf8.RuneCountInString(text)
	for _, phrase := range phrases {
		if text == phrase {
			return true
		}
		if n <= noiseSubstringLimit && strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// selectorIsSpecific reports whether a selector carries a class, id, or
// attribute constraint. Bare tag selectors like h1 are far more likely to hit
// the wrong element, so specificity dominates the scoring.
func selectorIsSpecific(selector string) bool {
	return strings.ContainsAny(selector, ".#[")
}

const (
	acceptThreshold = 30

	priceMinWon = 100
	priceMaxWon = 10_000_000
)

// uiNoiseLabels are single-word navigation and account labels seen across the
// common Korean mall platforms. They disqualify a candidate only as the whole
// text; most of them also occur inside real product names.
var uiNoiseLabels = []string{
	"카테고리", "전체보기", "메뉴", "네비게이션", "로그인", "회원가입",
	"장바구니", "주문", "배송", "고객센터", "공지사항", "이벤트",
	"커뮤니티", "게시판", "문의", "리뷰", "소개", "브랜드",
	"선택하세요", "추가", "후기", "옵션",
	"SHOP", "MENU", "INFO",
	"Category", "Login", "Cart",
}

// uiNoisePhrases are compound chrome and board headings; a short text
// containing one is rejected.
var uiNoisePhrases = []string{
	"옵션 선택", "전체상품목록", "상품 옵션", "상품 후기",
	"상품정보제공고시", "정보제공고시", "교환 및 반품안내", "반품안내",
	"CUSTOMER CENTER", "BANK INFO", "ORDER TRACKING", "RETURN & EXCHANGE",
	"Add to Cart", "Sign Up",
}

// nameSelectors is the candidate table for product names, class-based
// patterns first, generic headings last.
var nameSelectors = []string{
	".product-name", ".product-title", ".goods-name", ".item-name",
	".product_name", ".goods_name", ".item_title", ".product_title",
	".goods_title", ".detail-name", ".detail-title", ".prd-name",
	".prd-title", ".pro_name", ".prod-name", ".main-title",
	".product-main-title", ".goods-main-title", "[itemprop=\"name\"]",
	".name", ".title",
	"h1", "h2", "h3",
}

var priceSelectors = []string{
	".org_price", ".sale_price", ".product-price", "[itemprop=\"price\"]",
	".price", ".cost", ".amount", "[class*=\"price\"]",
}

// genericContainers are selectors that double as general UI wrappers; a match
// there is weak evidence at best.
var genericContainers = map[string]bool{
	".name": true, ".title": true, "h2": true, "h3": true,
}

var priceDigitsRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d+`)

// ParsePriceWon pulls the most plausible integer amount out of a price text.
// Comma-grouped figures win; otherwise the longest digit run is taken.
func ParsePriceWon(text string) (int, bool) {
	matches := priceDigitsRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	best := ""
	for _, m := range matches {
		if strings.Contains(m, ",") {
			best = m
			break
		}
	}
	if best == "" {
		for _, m := range matches {
			if len(m) > len(best) {
				best = m
			}
		}
	}
	v, err := strconv.Atoi(strings.ReplaceAll(best, ",", ""))
	if err != nil {
		return 0, false
	}
	return v, true
}

func priceIsPlausible(text string) bool {
	v, ok := ParsePriceWon(text)
	return ok && v >= priceMinWon && v <= priceMaxWon
}

func nameProfile() FieldProfile {
	return FieldProfile{
		Field:        models.FieldProductName,
		Selectors:    nameSelectors,
		NoiseExact:   uiNoiseLabels,
		NoisePhrases: uiNoisePhrases,
		MinLen:       3,
		MaxLen:       100,
		MinScore:     acceptThreshold,
		Rules: []Rule{
			{Name: "specific-selector", Weight: 100, Match: func(sel, _ string) bool {
				return selectorIsSpecific(sel) && !genericContainers[sel]
			}},
			{Name: "bracketed-brand", Weight: 50, Match: func(_, text string) bool {
				return strings.Contains(text, "[") && strings.Contains(text, "]")
			}},
			{Name: "ideal-length", Weight: 15, Match: func(_, text string) bool {
				n := utf8.RuneCountInString(text)
				return n >= 5 && n <= 50
			}},
			{Name: "acceptable-length", Weight: 10, Match: func(_, text string) bool {
				n := utf8.RuneCountInString(text)
				return (n >= 3 && n < 5) || (n > 50 && n <= 100)
			}},
			{Name: "has-alnum", Weight: 5, Match: func(_, text string) bool {
				return strings.IndexFunc(text, func(r rune) bool {
					return unicode.IsLetter(r) || unicode.IsDigit(r)
				}) >= 0
			}},
			{Name: "no-control-words", Weight: 5, Match: func(_, text string) bool {
				lower := strings.ToLower(text)
				for _, w := range []string{"select", "click", "button"} {
					if strings.Contains(lower, w) {
						return false
					}
				}
				return true
			}},
			{Name: "domain-keyword-selector", Weight: 10, Match: func(sel, _ string) bool {
				for _, kw := range []string{"product", "goods", "item", "prd", "prod"} {
					if strings.Contains(sel, kw) {
						return true
					}
				}
				return false
			}},
			{Name: "generic-container-penalty", Weight: -15, Match: func(sel, _ string) bool {
				return genericContainers[sel]
			}},
		},
	}
}

func priceProfile() FieldProfile {
	return FieldProfile{
		Field:        models.FieldPrice,
		Selectors:    priceSelectors,
		NoiseExact:   uiNoiseLabels,
		NoisePhrases: uiNoisePhrases,
		MinLen:       1,
		MaxLen:       60,
		MinScore:     acceptThreshold,
		Validate:     priceIsPlausible,
		Rules: []Rule{
			{Name: "specific-selector", Weight: 100, Match: func(sel, _ string) bool {
				return selectorIsSpecific(sel)
			}},
			{Name: "currency-marker", Weight: 10, Match: func(_, text string) bool {
				return strings.ContainsAny(text, "원₩$") || strings.Contains(text, ",")
			}},
			{Name: "domain-keyword-selector", Weight: 10, Match: func(sel, _ string) bool {
				for _, kw := range []string{"price", "cost", "amount"} {
					if strings.Contains(sel, kw) {
						return true
					}
				}
				return false
			}},
		},
	}
}
