// Package export writes the upload spreadsheet. The column schema is the
// 85-column bulk-registration format of the target sales channel; the header
// row and the fixed boilerplate cells must not drift from it.
package export

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jaehyunk/mallscraper/internal/models"
)

// headers is the channel's fixed 85-column registration schema.
var headers = []string{
	"업체상품코드", "모델명", "브랜드", "제조사", "원산지", "상품명", "홍보문구", "요약상품명",
	"카테고리코드", "사용자분류명", "한줄메모", "시중가", "원가", "표준공급가", "판매가",
	"배송방법", "배송비", "구매수량", "과세여부", "판매수량", "이미지1URL", "이미지2URL",
	"이미지3URL", "이미지4URL", "GIF생성", "이미지6URL", "이미지7URL", "이미지8URL",
	"이미지9URL", "이미지10URL", "추가정보입력사항", "옵션타입", "옵션구분", "선택옵션",
	"입력형옵션", "추가구매옵션", "상세설명", "추가상세설명", "광고/홍보", "제조일자",
	"유효일자", "사은품내용", "키워드", "인증구분", "인증정보", "거래처", "영어상품명",
	"중국어상품명", "일본어상품명", "영어상세설명", "중국어상세설명", "일본어상세설명",
	"상품무게", "영어키워드", "중국어키워드", "일본어키워드", "생산지국가",
	"전세계배송코드", "사이즈", "포장방법", "상품상세코드", "상품상세1", "상품상세2",
	"상품상세3", "상품상세4", "상품상세5", "상품상세6", "상품상세7", "상품상세8",
	"상품상세9", "상품상세10", "상품상세11", "상품상세12", "상품상세13", "상품상세14",
	"상품상세15", "상품상세16", "상품상세17", "상품상세18", "상품상세19", "상품상세20",
	"상품상세21", "상품상세22", "상품상세23", "상품상세24",
}

const sheetName = "Sheet1"

// Meta carries the per-run constants every row shares.
type Meta struct {
	SiteCode      string // latin brand code, part of product codes and paths
	BrandName     string
	CategoryCode  string
	Stamp         string // yyyymmddHHMM run stamp
	HostBase      string // public host prefix for composed images
	HeadBannerURL string
	FootBannerURL string
}

// Writer accumulates product rows in an xlsx workbook.
type Writer struct {
	file   *excelize.File
	meta   Meta
	rows   int
	logger *slog.Logger
}

func NewWriter(meta Meta) (*Writer, error) {
	f := excelize.NewFile()
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}
	return &Writer{
		file:   f,
		meta:   meta,
		rows:   1,
		logger: slog.Default().With("component", "export"),
	}, nil
}

// ProductCode builds the channel product code: last digit of the year, month,
// day, the site code, and the running counter.
func (m Meta) ProductCode(counter int) string {
	// Stamp is yyyymmddHHMM.
	year := m.Stamp[3:4]
	month := m.Stamp[4:6]
	day := m.Stamp[6:8]
	return year + month + day + m.SiteCode + strconv.Itoa(counter)
}

// ThumbnailURL is the hosted location the composed thumbnail will be uploaded
// to for this counter.
func (m Meta) ThumbnailURL(counter int) string {
	return fmt.Sprintf("%s/%s%s/cr/%d_cr.jpg", m.HostBase, m.Stamp, m.SiteCode, counter)
}

// DetailDescription builds the hosted detail HTML: head banner, the ten
// slice images, foot banner.
func (m Meta) DetailDescription(counter int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<center> <img src='%s' /><br>", m.HeadBannerURL)
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "<img src='%s/%s%s/output/%03d_%03d.jpg' /><br />",
			m.HostBase, m.Stamp, m.SiteCode, counter, i)
	}
	fmt.Fprintf(&b, "<img src='%s' /></center>", m.FootBannerURL)
	return b.String()
}

// OptionString renders the channel's required-option block. Each line carries
// the option's price surcharge and the fixed stock figure; when only one line
// exists the whole block is cleared, since a single mandatory option is no
// choice at all.
func OptionString(options []models.Option) string {
	if len(options) == 0 {
		return ""
	}
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		lines = append(lines, fmt.Sprintf("%s==%d=10000=0=0=0=", opt.Label, opt.PriceDelta))
	}
	s := "[필수선택]\n" + strings.Join(lines, "\n")
	if strings.Count(s, "10000") == 1 {
		return ""
	}
	return s
}

// AppendProduct writes one product row. counter is the 1-based image counter
// the product's composed images were saved under.
func (w *Writer) AppendProduct(p *models.ProductRecord, counter int) error {
	optionString := OptionString(p.Options)
	optionType := ""
	if optionString != "" {
		optionType = "SM"
	}
	thumbnail := w.meta.ThumbnailURL(counter)

	row := make([]any, len(headers))
	for i := range row {
		row[i] = ""
	}

	row[0] = w.meta.ProductCode(counter) // 업체상품코드
	row[2] = w.meta.BrandName            // 브랜드
	row[3] = w.meta.BrandName            // 제조사
	row[4] = "국내=서울=강남구"           // 원산지
	row[5] = p.Name                      // 상품명
	row[8] = w.meta.CategoryCode         // 카테고리코드
	row[9] = w.meta.SiteCode + w.meta.Stamp // 사용자분류명
	row[14] = p.Price                    // 판매가
	row[15] = "선결제"                   // 배송방법
	row[16] = "3500"                     // 배송비
	row[17] = "0"                        // 구매수량
	row[18] = "y"                        // 과세여부
	row[19] = "9000"                     // 판매수량
	row[20] = thumbnail                  // 이미지1URL
	row[21] = thumbnail                  // 이미지2URL
	row[31] = optionType                 // 옵션타입
	row[32] = optionString               // 옵션구분
	row[36] = w.meta.DetailDescription(counter) // 상세설명
	row[42] = "쿠폰"                     // 키워드
	row[44] = "c"                        // 인증정보
	row[52] = "25"                       // 상품무게
	// 상품상세코드 (60) stays empty; the boilerplate block is 상품상세1..13.
	for i := 61; i <= 73; i++ {
		row[i] = "상세설명일괄참조"
	}
	row[67] = "N"       // 상품상세7, 사은품여부
	row[73] = thumbnail // 상품상세13

	w.rows++
	cell, err := excelize.CoordinatesToCellName(1, w.rows)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheetName, cell, &row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	w.logger.Debug("row appended", "code", row[0], "name", p.Name, "price", p.Price)
	return nil
}

// RowCount is the number of product rows written so far.
func (w *Writer) RowCount() int {
	return w.rows - 1
}

// Save writes the workbook to path and closes it.
func (w *Writer) Save(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	w.logger.Info("spreadsheet saved", "path", path, "products", w.RowCount())
	return nil
}
