// Package b2bsync synchronizes a supplier's B2B product catalog into a local
// store. It logs into the supplier portal with a browser, walks the paginated
// stock listing with one or more workers, extracts prices from the rendered
// HTML, and downloads product images that are not yet on disk.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/).
package b2bsync

import "log/slog"

// Credentials identify the supplier portal account used by crawl workers.
type Credentials struct {
	Username string
	Password string
}

// Validate returns an error if either credential is missing.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return Errorf(EINVALID, "username required")
	}
	if c.Password == "" {
		return Errorf(EINVALID, "password required")
	}
	return nil
}

// String masks the password.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + ", Password: ***}"
}

// LogValue implements slog.LogValuer so the password never reaches log output.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", "***"),
	)
}

// Default supplier portal locations.
const (
	DefaultBaseURL    = "https://www.b2b.hvkmuhendislik.com"
	DefaultLoginURL   = DefaultBaseURL + "/GirisYap"
	DefaultCatalogURL = DefaultBaseURL + "/stok-listesi-tum/stok-listesi"

	// DefaultTotalPages is the catalog size observed when the site profile
	// was last updated. It goes stale as the supplier adds stock; enable live
	// discovery to refresh it.
	DefaultTotalPages = 202
)

// Site describes the supplier portal being crawled.
type Site struct {
	BaseURL    string `yaml:"base_url"`
	LoginURL   string `yaml:"login_url"`
	CatalogURL string `yaml:"catalog_url"`

	// PageURLFormat, if set, is a fmt pattern taking a page number. Workers
	// whose window starts after page 1 open it directly instead of clicking
	// through from the first page.
	PageURLFormat string `yaml:"page_url_format"`

	// TotalPages is used when live page discovery is disabled or finds
	// nothing.
	TotalPages int `yaml:"total_pages"`

	// NoImageMarkers are URL substrings identifying placeholder images.
	NoImageMarkers []string `yaml:"no_image_markers"`
}

// DefaultSite returns the profile of the default supplier portal.
func DefaultSite() Site {
	return Site{
		BaseURL:        DefaultBaseURL,
		LoginURL:       DefaultLoginURL,
		CatalogURL:     DefaultCatalogURL,
		TotalPages:     DefaultTotalPages,
		NoImageMarkers: []string{"noimage"},
	}
}

// Validate returns an error if the site profile cannot be crawled.
func (s *Site) Validate() error {
	if s.BaseURL == "" {
		return Errorf(EINVALID, "site base URL required")
	}
	if s.LoginURL == "" {
		return Errorf(EINVALID, "site login URL required")
	}
	if s.CatalogURL == "" {
		return Errorf(EINVALID, "site catalog URL required")
	}
	if s.TotalPages < 0 {
		return Errorf(EINVALID, "site total pages must not be negative")
	}
	return nil
}
