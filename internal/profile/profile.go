// Package profile persists the detected selector set for a site so later
// runs, and the operator, can see what the detection stages decided.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jaehyunk/mallscraper/internal/detector"
	"github.com/jaehyunk/mallscraper/internal/models"
)

// Profile is the per-site detection artifact. Samples hold the first few
// extracted records so an operator can eyeball whether the selectors hit the
// right fields.
type Profile struct {
	Site      string                   `json:"site"`
	Stage     models.Stage             `json:"stage"`
	Selectors models.SelectorMap       `json:"selectors"`
	Login     *detector.LoginSelectors `json:"login,omitempty"`
	SampleURL string                   `json:"sample_url,omitempty"`
	Samples   []*models.ProductRecord  `json:"samples,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Store reads and writes profiles under a base directory, one JSON file per
// site code.
type Store struct {
	mu      sync.Mutex
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) path(site string) string {
	return filepath.Join(s.baseDir, site+"_profile.json")
}

// Save writes the profile atomically. An existing profile's creation time is
// preserved.
func (s *Store) Save(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if prev, err := s.load(p.Site); err == nil {
		p.CreatedAt = prev.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first for atomicity
	tmpFile := s.path(p.Site) + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.path(p.Site))
}

// Load returns the stored profile for a site.
func (s *Store) Load(site string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(site)
}

func (s *Store) load(site string) (*Profile, error) {
	data, err := os.ReadFile(s.path(site))
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", site, err)
	}
	return &p, nil
}
