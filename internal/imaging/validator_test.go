package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehyunk/mallscraper/internal/run"
)

func TestURLAcceptable(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"detail path", "https://cdn.example.com/detail/main_01.jpg", true},
		{"goods keyword", "https://cdn.example.com/goods/12345.png", true},
		{"plain extension", "https://cdn.example.com/x/y/z.jpeg", true},
		{"logo", "https://cdn.example.com/common/logo.png", false},
		{"quick menu", "https://cdn.example.com/quick/right.gif", false},
		{"delivery info block", "https://cdn.example.com/img/delivery_info.jpg", false},
		{"widget path", "https://cdn.example.com/_wg/promo.jpg", false},
		{"sns button", "https://cdn.example.com/sns/kakao_share.png", false},
		{"no extension no keyword", "https://cdn.example.com/x/y", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URLAcceptable(tt.url))
		})
	}
}

// testJPEG renders a solid image of the given size so the served bytes carry
// real decodable dimensions.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 251), uint8(y % 241), 100, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func imageServer(t *testing.T, payload []byte, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		if r.Method != http.MethodHead {
			w.Write(payload)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func relaxedPolicy() Policy {
	p := DefaultPolicy()
	p.MinBytes = 1
	p.MinDetailWidth = 300
	return p
}

func TestValidateAcceptsWideImage(t *testing.T) {
	srv := imageServer(t, testJPEG(t, 700, 900), nil)
	v := NewValidator(relaxedPolicy(), run.NewContext())

	assert.True(t, v.Validate(context.Background(), srv.URL+"/goods/detail_01.jpg"))
}

func TestValidateRejectsNarrowImage(t *testing.T) {
	srv := imageServer(t, testJPEG(t, 200, 200), nil)
	v := NewValidator(relaxedPolicy(), run.NewContext())

	assert.False(t, v.Validate(context.Background(), srv.URL+"/goods/detail_01.jpg"))
}

func TestValidateRejectsExtremeAspectRatio(t *testing.T) {
	srv := imageServer(t, testJPEG(t, 300, 3500), nil)
	v := NewValidator(relaxedPolicy(), run.NewContext())

	assert.False(t, v.Validate(context.Background(), srv.URL+"/goods/detail_01.jpg"))
}

func TestValidateRejectsSmallContentLength(t *testing.T) {
	srv := imageServer(t, testJPEG(t, 700, 700), nil)
	p := relaxedPolicy()
	p.MinBytes = 10 * 1024 * 1024
	v := NewValidator(p, run.NewContext())

	assert.False(t, v.Validate(context.Background(), srv.URL+"/goods/detail_01.jpg"))
}

func TestValidateDeniedURLSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := imageServer(t, testJPEG(t, 700, 700), &hits)
	v := NewValidator(relaxedPolicy(), run.NewContext())

	assert.False(t, v.Validate(context.Background(), srv.URL+"/common/logo.jpg"))
	assert.Zero(t, hits.Load())
}

func TestValidateCachesVerdictPerRun(t *testing.T) {
	var hits atomic.Int64
	srv := imageServer(t, testJPEG(t, 700, 700), &hits)
	v := NewValidator(relaxedPolicy(), run.NewContext())
	url := srv.URL + "/goods/detail_01.jpg"

	assert.True(t, v.Validate(context.Background(), url))
	first := hits.Load()
	assert.True(t, v.Validate(context.Background(), url))
	assert.Equal(t, first, hits.Load())
}

func TestValidateRejectsDuplicateContent(t *testing.T) {
	payload := testJPEG(t, 700, 700)
	srv := imageServer(t, payload, nil)
	v := NewValidator(relaxedPolicy(), run.NewContext())

	assert.True(t, v.Validate(context.Background(), srv.URL+"/goods/detail_01.jpg"))
	// Same bytes under a different URL.
	assert.False(t, v.Validate(context.Background(), srv.URL+"/goods/detail_02.jpg"))
}

func TestValidateFallsBackToPageProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	v := NewValidator(relaxedPolicy(), run.NewContext()).
		WithPageProbe(func(_ context.Context, _ string) (int, int, error) {
			return 800, 1200, nil
		})

	assert.True(t, v.Validate(context.Background(), srv.URL+"/goods/detail_01.jpg"))
}

func TestValidateWithoutPageProbeRejectsBlockedHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	v := NewValidator(relaxedPolicy(), run.NewContext())
	assert.False(t, v.Validate(context.Background(), srv.URL+"/goods/detail_01.jpg"))
}

func TestFilterValidPreservesOrder(t *testing.T) {
	wide := imageServer(t, testJPEG(t, 700, 700), nil)
	narrow := imageServer(t, testJPEG(t, 100, 100), nil)
	v := NewValidator(relaxedPolicy(), run.NewContext())

	urls := []string{
		wide.URL + "/goods/detail_01.jpg",
		narrow.URL + "/goods/detail_02.jpg",
		wide.URL + "/goods/detail_03.jpg?v=2",
	}
	got := v.FilterValid(context.Background(), urls, 4)

	// detail_03 serves identical bytes to detail_01, so content dedup drops
	// one of them; the survivor keeps page order.
	require.Len(t, got, 1)
	assert.Contains(t, got[0], wide.URL)
}

func TestFilterValidDistinctImages(t *testing.T) {
	first := imageServer(t, testJPEG(t, 700, 700), nil)
	second := imageServer(t, testJPEG(t, 800, 600), nil)
	v := NewValidator(relaxedPolicy(), run.NewContext())

	urls := []string{
		first.URL + "/goods/detail_01.jpg",
		second.URL + "/goods/detail_02.jpg",
	}
	got := v.FilterValid(context.Background(), urls, 2)
	assert.Equal(t, urls, got)
}
