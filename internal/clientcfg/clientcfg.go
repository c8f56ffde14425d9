// Package clientcfg loads the per-client report configuration. Each client
// folder carries a config.json naming the input export, the column mapping
// and the ordered categorization rules. The JSON rule array is the priority
// order users rely on to disambiguate overlapping keywords, so it is kept as
// an ordered list rather than a map.
package clientcfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/engine"
)

// FileName is the expected configuration file inside a client folder.
const FileName = "config.json"

type (
	// Files names the input export and the output spreadsheet tab base.
	Files struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	}

	// Config is one client's report configuration.
	Config struct {
		ReportTitle string               `json:"report_title"`
		Files       Files                `json:"files"`
		Columns     engine.ColumnMapping `json:"column_mapping"`
		DateFormats []string             `json:"date_formats"`
		InvertSign  bool                 `json:"invert_sign"`
		Rules       core.RuleSet         `json:"rules"`
	}
)

// Load reads and validates the configuration for one client folder.
// Configuration problems are fatal to that client's run and surface before
// any transaction data is read.
func Load(clientDir string) (*Config, error) {
	path := filepath.Join(clientDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client config %s: %w", path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse client config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the parts the engine cannot default. An empty rules array
// is valid: every transaction then lands in Uncategorized.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Files.Input) == "" {
		return fmt.Errorf("files.input is required")
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	return nil
}

// NormalizerConfig translates the client configuration into engine terms.
func (c *Config) NormalizerConfig() engine.NormalizerConfig {
	return engine.NormalizerConfig{
		Columns:     c.Columns,
		DateFormats: c.DateFormats,
		InvertSign:  c.InvertSign,
	}
}

// Title returns the configured report title or a default derived from the
// client name.
func (c *Config) Title(client string) string {
	if strings.TrimSpace(c.ReportTitle) != "" {
		return c.ReportTitle
	}
	return fmt.Sprintf("%s Financial Report", client)
}
