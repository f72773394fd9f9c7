package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jaehyunk/mallscraper/internal/models"
)

func testMeta() Meta {
	return Meta{
		SiteCode:      "littlebigkids",
		BrandName:     "리틀빅키즈",
		CategoryCode:  "39130000",
		Stamp:         "202609011030",
		HostBase:      "http://ai.esmplus.com/tstkimtt",
		HeadBannerURL: "http://gi.esmplus.com/tstkimtt/head.jpg",
		FootBannerURL: "http://gi.esmplus.com/tstkimtt/deliver.jpg",
	}
}

func testProduct() *models.ProductRecord {
	return &models.ProductRecord{
		URL:      "https://mall.example.com/product/detail.html?no=1",
		Name:     "프리미엄 원목 도마 세트",
		PriceRaw: "12,345원",
		Price:    13600,
		Options: []models.Option{
			{Label: "소형"},
			{Label: "대형", PriceDelta: 2000},
		},
		ExtractedAt: time.Now(),
	}
}

func TestHeaderSchema(t *testing.T) {
	assert.Len(t, headers, 85)
	assert.Equal(t, "업체상품코드", headers[0])
	assert.Equal(t, "상품명", headers[5])
	assert.Equal(t, "판매가", headers[14])
	assert.Equal(t, "옵션구분", headers[32])
	assert.Equal(t, "상세설명", headers[36])
	assert.Equal(t, "상품상세코드", headers[60])
	assert.Equal(t, "상품상세1", headers[61])
	assert.Equal(t, "상품상세7", headers[67])
	assert.Equal(t, "상품상세13", headers[73])
	assert.Equal(t, "상품상세24", headers[84])
}

func TestMetaProductCode(t *testing.T) {
	m := testMeta()
	// Stamp 202609011030: year digit 6, month 09, day 01.
	assert.Equal(t, "60901littlebigkids1", m.ProductCode(1))
	assert.Equal(t, "60901littlebigkids27", m.ProductCode(27))
}

func TestMetaThumbnailURL(t *testing.T) {
	m := testMeta()
	assert.Equal(t,
		"http://ai.esmplus.com/tstkimtt/202609011030littlebigkids/cr/3_cr.jpg",
		m.ThumbnailURL(3))
}

func TestMetaDetailDescription(t *testing.T) {
	desc := testMeta().DetailDescription(2)

	assert.Contains(t, desc, "<center> <img src='http://gi.esmplus.com/tstkimtt/head.jpg' /><br>")
	assert.Contains(t, desc, "/202609011030littlebigkids/output/002_001.jpg")
	assert.Contains(t, desc, "/202609011030littlebigkids/output/002_010.jpg")
	assert.NotContains(t, desc, "002_000.jpg")
	assert.NotContains(t, desc, "002_011.jpg")
	assert.Contains(t, desc, "<img src='http://gi.esmplus.com/tstkimtt/deliver.jpg' /></center>")
}

func TestOptionString(t *testing.T) {
	t.Run("multiple options", func(t *testing.T) {
		s := OptionString([]models.Option{{Label: "소형"}, {Label: "대형"}})
		assert.Equal(t, "[필수선택]\n소형==0=10000=0=0=0=\n대형==0=10000=0=0=0=", s)
	})
	t.Run("surcharge carried in the price slot", func(t *testing.T) {
		s := OptionString([]models.Option{{Label: "소형"}, {Label: "대형", PriceDelta: 2000}})
		assert.Equal(t, "[필수선택]\n소형==0=10000=0=0=0=\n대형==2000=10000=0=0=0=", s)
	})
	t.Run("single option cleared", func(t *testing.T) {
		assert.Empty(t, OptionString([]models.Option{{Label: "단일"}}))
	})
	t.Run("no options", func(t *testing.T) {
		assert.Empty(t, OptionString(nil))
	})
	t.Run("label containing stock figure keeps block", func(t *testing.T) {
		s := OptionString([]models.Option{{Label: "10000mAh"}})
		assert.NotEmpty(t, s)
	})
}

func TestWriterRoundTrip(t *testing.T) {
	w, err := NewWriter(testMeta())
	require.NoError(t, err)
	require.NoError(t, w.AppendProduct(testProduct(), 1))
	assert.Equal(t, 1, w.RowCount())

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, w.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	require.Len(t, header, 85)
	assert.Equal(t, "업체상품코드", header[0])

	row := rows[1]
	require.GreaterOrEqual(t, len(row), 74)
	assert.Equal(t, "60901littlebigkids1", row[0])
	assert.Equal(t, "리틀빅키즈", row[2])
	assert.Equal(t, "국내=서울=강남구", row[4])
	assert.Equal(t, "프리미엄 원목 도마 세트", row[5])
	assert.Equal(t, "13600", row[14])
	assert.Equal(t, "선결제", row[15])
	assert.Equal(t, "SM", row[31])
	assert.Contains(t, row[32], "[필수선택]")
	assert.Contains(t, row[32], "대형==2000=10000=0=0=0=")
	assert.Contains(t, row[36], "output/001_001.jpg")
	assert.Equal(t, "", row[60])
	assert.Equal(t, "상세설명일괄참조", row[61])
	assert.Equal(t, "N", row[67])
	assert.Equal(t, "상세설명일괄참조", row[72])
	assert.Contains(t, row[73], "/cr/1_cr.jpg")
}

func TestWriterOptionlessProduct(t *testing.T) {
	w, err := NewWriter(testMeta())
	require.NoError(t, err)

	p := testProduct()
	p.Options = nil
	require.NoError(t, w.AppendProduct(p, 1))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, w.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	// Option type and option block both stay empty.
	assert.Equal(t, "", rows[1][31])
	assert.Equal(t, "", rows[1][32])
}
