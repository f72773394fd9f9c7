package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehyunk/mallscraper/internal/models"
)

func TestDetectStructuredDataStage(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{
			"@context": "https://schema.org",
			"@type": "Product",
			"name": "프리미엄 원목 도마",
			"image": "https://cdn.example.com/img/board_main.jpg",
			"offers": {"@type": "Offer", "price": "32000", "priceCurrency": "KRW"}
		}
		</script>
	</head><body>
		<h2 class="prd-name">프리미엄 원목 도마</h2>
		<span class="price">32,000원</span>
		<div class="viewImgWrap"><img src="https://cdn.example.com/img/board_main.jpg"></div>
	</body></html>`

	result, err := New().Detect(html)
	require.NoError(t, err)
	assert.Equal(t, models.StageStructuredData, result.Stage)

	name, ok := result.Selectors.Get(models.FieldProductName)
	require.True(t, ok)
	assert.Equal(t, "h2.prd-name", name)

	price, ok := result.Selectors.Get(models.FieldPrice)
	require.True(t, ok)
	assert.Equal(t, "span.price", price)
}

func TestDetectStructuredDataGraphAndArray(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@graph": [
			{"@type": "WebSite", "name": "몰"},
			{"@type": "Product", "name": "핸드메이드 머그컵",
			 "offers": [{"price": 15000}]}
		]}
		</script>
	</head><body>
		<h1>핸드메이드 머그컵</h1>
		<em class="sale_price">15,000</em>
	</body></html>`

	result, err := New().Detect(html)
	require.NoError(t, err)
	assert.Equal(t, models.StageStructuredData, result.Stage)
}

func TestDetectMetaTagsStage(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="면 혼방 셔츠">
		<meta property="og:image" content="https://cdn.example.com/shirt.jpg">
		<meta property="product:price:amount" content="29000">
	</head><body><div>스크립트로 렌더링되는 본문</div></body></html>`

	result, err := New().Detect(html)
	require.NoError(t, err)
	assert.Equal(t, models.StageMetaTags, result.Stage)

	name, ok := result.Selectors.Get(models.FieldProductName)
	require.True(t, ok)
	assert.Equal(t, `meta[property="og:title"]`, name)

	price, ok := result.Selectors.Get(models.FieldPrice)
	require.True(t, ok)
	assert.Equal(t, `meta[property="product:price:amount"]`, price)
}

func TestDetectMetaTagsRejectsZeroPrice(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="상품명만 있는 페이지">
		<meta property="product:price:amount" content="0">
	</head><body></body></html>`

	result, err := New().Detect(html)
	require.NoError(t, err)
	// Only the title resolves, so the meta stage fails its two-field bar.
	assert.NotEqual(t, models.StageMetaTags, result.Stage)
}

func TestDetectHeuristicStage(t *testing.T) {
	html := `<html><body>
		<div class="menu">Category</div>
		<h2 class="product-name">[브랜드] 캠핑용 접이식 테이블</h2>
		<span class="price">48,000원</span>
		<select name="option_size">
			<option>선택</option>
			<option>소형</option>
			<option>중형</option>
			<option>대형</option>
		</select>
	</body></html>`

	result, err := New().Detect(html)
	require.NoError(t, err)
	assert.Equal(t, models.StageHeuristicDom, result.Stage)

	name, _ := result.Selectors.Get(models.FieldProductName)
	assert.Equal(t, ".product-name", name)

	opts, ok := result.Selectors.Get(models.FieldOptions)
	require.True(t, ok)
	assert.Equal(t, `select[name*="option"]`, opts)
}

func TestDetectFallsBackToBaseline(t *testing.T) {
	result, err := New().Detect(`<html><body><p>빈 페이지</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, models.StageDefault, result.Stage)
	assert.Equal(t, BaselineSelectors(), result.Selectors)
}

func TestDetectMergePreservesBaselineForUnresolvedFields(t *testing.T) {
	// Heuristic stage resolves name and price only; list selector must
	// survive from the baseline.
	html := `<html><body>
		<h2 class="goods-name">스테인리스 보온병</h2>
		<span class="product-price">21,000원</span>
	</body></html>`

	result, err := New().Detect(html)
	require.NoError(t, err)
	require.Equal(t, models.StageHeuristicDom, result.Stage)

	list, ok := result.Selectors.Get(models.FieldProductList)
	require.True(t, ok)
	assert.Equal(t, BaselineSelectors()[models.FieldProductList], list)
}

func TestDetectProductLinkSelector(t *testing.T) {
	html := `<html><body>
		<ul class="goods-list">
			<li><a class="prd thumb" href="/product/detail.html?no=1">a</a></li>
			<li><a class="thumb prd" href="/product/detail.html?no=2">b</a></li>
			<li><a class="prd thumb" href="/product/detail.html?no=3">c</a></li>
			<li><a class="banner" href="/event/sale.html">sale</a></li>
		</ul>
	</body></html>`
	doc := docFromHTML(t, html)

	sel := DetectProductLinkSelector(doc, "/product/detail.html")
	assert.Equal(t, "a.prd.thumb", sel)
}

func TestDetectProductLinkSelectorFallback(t *testing.T) {
	doc := docFromHTML(t, `<html><body><a href="/about">소개</a></body></html>`)
	sel := DetectProductLinkSelector(doc, "/product/detail.html")
	assert.Equal(t, `a[href*="/product/detail.html"]`, sel)
}
