package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Site    SiteConfig
	Crawl   CrawlConfig
	Price   PriceConfig
	Image   ImageConfig
	Browser BrowserConfig
	Output  OutputConfig
	Logging LoggingConfig
}

// SiteConfig describes one target shopping mall. The catalog URL template
// must contain a {page} placeholder.
type SiteConfig struct {
	Code               string // short latin brand code, used in filenames and product codes
	BrandName          string // display name written into the spreadsheet
	CategoryCode       string
	LoginURL           string
	CatalogURLTemplate string
	ProductBaseURL     string
	ProductLinkPattern string // substring that marks a product detail href
	UseLogin           bool
	Username           string
	Password           string
}

type CrawlConfig struct {
	StartPage        int
	EndPage          int
	TestMode         bool
	TestProductCount int
	RequestDelay     time.Duration
	NavTimeout       time.Duration
}

type PriceConfig struct {
	AdjustRate float64 // e.g. 1.1 for a 10% markup
	Minimum    int     // products below this (after adjustment) are skipped
}

type ImageConfig struct {
	MinDetailWidth int   // 660 for the strict pipeline, 300 for relaxed sites
	MinBytes       int64 // HEAD content-length floor
	ProbeWorkers   int
	HostBase       string // public host the composed images will be uploaded to
	HeadBannerURL  string
	FootBannerURL  string
	BadgeTop       string
	BadgeBottom    string
	FontPath       string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgent      string
}

type OutputConfig struct {
	BaseDir string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{
		Site: SiteConfig{
			Code:               getEnvOrDefault("SITE_CODE", ""),
			BrandName:          getEnvOrDefault("SITE_BRAND_NAME", ""),
			CategoryCode:       getEnvOrDefault("SITE_CATEGORY_CODE", ""),
			LoginURL:           getEnvOrDefault("SITE_LOGIN_URL", ""),
			CatalogURLTemplate: getEnvOrDefault("SITE_CATALOG_URL", ""),
			ProductBaseURL:     getEnvOrDefault("SITE_PRODUCT_BASE_URL", ""),
			ProductLinkPattern: getEnvOrDefault("SITE_PRODUCT_LINK_PATTERN", "/product/detail.html"),
			UseLogin:           getBoolOrDefault("SITE_USE_LOGIN", false),
			Username:           getEnvOrDefault("SITE_USERNAME", ""),
			Password:           getEnvOrDefault("SITE_PASSWORD", ""),
		},
		Crawl: CrawlConfig{
			StartPage:        getIntOrDefault("CRAWL_START_PAGE", 1),
			EndPage:          getIntOrDefault("CRAWL_END_PAGE", 1),
			TestMode:         getBoolOrDefault("CRAWL_TEST_MODE", false),
			TestProductCount: getIntOrDefault("CRAWL_TEST_PRODUCT_COUNT", 10),
			RequestDelay:     getDurationOrDefault("CRAWL_REQUEST_DELAY", 1*time.Second),
			NavTimeout:       getDurationOrDefault("CRAWL_NAV_TIMEOUT", 30*time.Second),
		},
		Price: PriceConfig{
			AdjustRate: getFloatOrDefault("PRICE_ADJUST_RATE", 1.1),
			Minimum:    getIntOrDefault("PRICE_MINIMUM", 10000),
		},
		Image: ImageConfig{
			MinDetailWidth: getIntOrDefault("IMAGE_MIN_DETAIL_WIDTH", 660),
			MinBytes:       int64(getIntOrDefault("IMAGE_MIN_BYTES", 5*1024)),
			ProbeWorkers:   getIntOrDefault("IMAGE_PROBE_WORKERS", 4),
			HostBase:       getEnvOrDefault("IMAGE_HOST_BASE", "http://ai.esmplus.com/tstkimtt"),
			HeadBannerURL:  getEnvOrDefault("IMAGE_HEAD_BANNER_URL", "http://gi.esmplus.com/tstkimtt/head.jpg"),
			FootBannerURL:  getEnvOrDefault("IMAGE_FOOT_BANNER_URL", "http://gi.esmplus.com/tstkimtt/deliver.jpg"),
			BadgeTop:       getEnvOrDefault("IMAGE_BADGE_TOP", "S2B"),
			BadgeBottom:    getEnvOrDefault("IMAGE_BADGE_BOTTOM", "REGISTERED"),
			FontPath:       getEnvOrDefault("IMAGE_FONT_PATH", ""),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "ko-KR,ko;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Seoul"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "ko-KR"),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
		},
		Output: OutputConfig{
			BaseDir: getEnvOrDefault("OUTPUT_DIR", "./runs"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Site.Code == "" {
		return fmt.Errorf("SITE_CODE is required")
	}
	if c.Site.CatalogURLTemplate == "" {
		return fmt.Errorf("SITE_CATALOG_URL is required")
	}
	if !strings.Contains(c.Site.CatalogURLTemplate, "{page}") {
		return fmt.Errorf("SITE_CATALOG_URL must contain a {page} placeholder")
	}
	if c.Site.UseLogin && (c.Site.Username == "" || c.Site.Password == "") {
		return fmt.Errorf("SITE_USERNAME and SITE_PASSWORD are required when SITE_USE_LOGIN is set")
	}
	if c.Crawl.StartPage < 1 || c.Crawl.EndPage < c.Crawl.StartPage {
		return fmt.Errorf("CRAWL_START_PAGE/CRAWL_END_PAGE range is invalid")
	}
	if c.Price.AdjustRate <= 0 {
		return fmt.Errorf("PRICE_ADJUST_RATE must be positive")
	}
	if c.Image.ProbeWorkers < 1 {
		return fmt.Errorf("IMAGE_PROBE_WORKERS must be at least 1")
	}
	if c.Image.MinDetailWidth < 1 {
		return fmt.Errorf("IMAGE_MIN_DETAIL_WIDTH must be at least 1")
	}
	return nil
}

// CatalogURL expands the {page} placeholder.
func (c *SiteConfig) CatalogURL(page int) string {
	return strings.ReplaceAll(c.CatalogURLTemplate, "{page}", strconv.Itoa(page))
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
