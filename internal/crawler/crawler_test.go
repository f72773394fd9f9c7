package crawler

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehyunk/mallscraper/internal/extractor"
)

func TestLinksFromDoc(t *testing.T) {
	html := `<html><body>
		<ul>
			<li><a class="prd" href="/product/detail.html?no=1">a</a></li>
			<li><a class="prd" href="https://mall.example.com/product/detail.html?no=2">b</a></li>
			<li><a class="prd" href="/event/sale.html">sale</a></li>
			<li><a class="prd">no href</a></li>
		</ul>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	links := LinksFromDoc(doc, "a.prd",
		"https://mall.example.com/list.html?page=1", "/product/detail.html")

	assert.Equal(t, []string{
		"https://mall.example.com/product/detail.html?no=1",
		"https://mall.example.com/product/detail.html?no=2",
	}, links)
}

func TestIsSkip(t *testing.T) {
	assert.True(t, isSkip(extractor.ErrDuplicateProduct))
	assert.True(t, isSkip(extractor.ErrPriceMissing))
	assert.True(t, isSkip(extractor.ErrPriceBelowMinimum))
	assert.True(t, isSkip(extractor.ErrNameMissing))
	assert.False(t, isSkip(errors.New("browser crashed")))
}
