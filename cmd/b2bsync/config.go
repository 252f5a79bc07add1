package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/b2bsync"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the site profile file name looked up in the working
// and home directories.
const DefaultConfigFile = ".b2bsync.yaml"

// FindConfigFile returns the site profile to load:
//  1. configPath, if given
//  2. .b2bsync.yaml in the current directory
//  3. .b2bsync.yaml in the user's home directory
//
// It returns an empty string when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// LoadSite returns the default site profile overridden by the profile file,
// if any, and the path it was read from. An explicit configPath that does not
// exist is an error.
func LoadSite(configPath string) (b2bsync.Site, string, error) {
	site := b2bsync.DefaultSite()

	path := FindConfigFile(configPath)
	if path == "" {
		return site, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return site, "", b2bsync.Errorf(b2bsync.ENOTFOUND, "config file %q not found", path)
		}
		return site, "", err
	}

	site, err = ParseSite(data)
	if err != nil {
		return site, "", err
	}
	return site, path, nil
}

// ParseSite decodes a YAML site profile. Keys that are absent keep their
// defaults, and a custom base_url moves the default login and catalog paths
// to that host.
func ParseSite(data []byte) (b2bsync.Site, error) {
	var override b2bsync.Site
	if err := yaml.Unmarshal(data, &override); err != nil {
		return b2bsync.Site{}, b2bsync.Errorf(b2bsync.EINVALID, "invalid site profile: %s", err)
	}

	site := b2bsync.DefaultSite()
	if override.BaseURL != "" {
		base := strings.TrimRight(override.BaseURL, "/")
		site.BaseURL = base
		site.LoginURL = base + strings.TrimPrefix(b2bsync.DefaultLoginURL, b2bsync.DefaultBaseURL)
		site.CatalogURL = base + strings.TrimPrefix(b2bsync.DefaultCatalogURL, b2bsync.DefaultBaseURL)
	}
	if override.LoginURL != "" {
		site.LoginURL = override.LoginURL
	}
	if override.CatalogURL != "" {
		site.CatalogURL = override.CatalogURL
	}
	if override.PageURLFormat != "" {
		site.PageURLFormat = override.PageURLFormat
	}
	if override.TotalPages != 0 {
		site.TotalPages = override.TotalPages
	}
	if override.NoImageMarkers != nil {
		site.NoImageMarkers = override.NoImageMarkers
	}

	if err := site.Validate(); err != nil {
		return b2bsync.Site{}, err
	}
	return site, nil
}
