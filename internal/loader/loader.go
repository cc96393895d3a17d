// Package loader reads target batches from JSON, CSV or YAML files and
// prepares them for the orchestrator: URL validation, normalization,
// target-id derivation and first-occurrence-wins dedup.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/utils"
)

// Record is one raw input row before validation. Only URL is required;
// TargetID is derived from the normalized URL when absent.
type Record struct {
	TargetID    string `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	URL         string `json:"url" yaml:"url"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	JobTitle    string `json:"job_title,omitempty" yaml:"job_title,omitempty"`
	Company     string `json:"company,omitempty" yaml:"company,omitempty"`
}

// Loader reads and prepares one targets file.
type Loader struct {
	filePath string
}

// New creates a loader for the given file path.
func New(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads the file, picks the parser by extension and returns the
// prepared, deduplicated target list.
func (l *Loader) Load() ([]domain.Target, error) {
	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer utils.Close(f)

	var records []Record
	switch strings.ToLower(filepath.Ext(l.filePath)) {
	case ".json":
		records, err = parseJSON(f)
	case ".csv":
		records, err = parseCSV(f)
	case ".yaml", ".yml":
		records, err = parseYAML(f)
	default:
		return nil, fmt.Errorf("unsupported targets file extension: %s", filepath.Ext(l.filePath))
	}
	if err != nil {
		return nil, err
	}

	return Prepare(records), nil
}

// Prepare validates, normalizes and deduplicates raw records. Records with
// an unusable URL are dropped; among duplicates of the same target id the
// first occurrence wins.
func Prepare(records []Record) []domain.Target {
	seen := make(map[string]bool, len(records))
	targets := make([]domain.Target, 0, len(records))

	for _, rec := range records {
		if !domain.ValidTargetURL(rec.URL) {
			continue
		}

		normalized := domain.NormalizeURL(rec.URL)
		id := rec.TargetID
		if id == "" {
			id = domain.TargetIDFromURL(normalized)
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		targets = append(targets, domain.Target{
			ID:          id,
			URL:         normalized,
			DisplayName: strings.TrimSpace(rec.DisplayName),
			JobTitle:    strings.TrimSpace(rec.JobTitle),
			Company:     strings.TrimSpace(rec.Company),
		})
	}
	return targets
}

func parseJSON(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse targets json: %w", err)
	}
	return records, nil
}

func parseYAML(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets yaml: %w", err)
	}
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse targets yaml: %w", err)
	}
	return records, nil
}

// parseCSV expects a header row; column order is free and unknown columns
// are ignored.
func parseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, fmt.Errorf("targets csv is missing the url column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		records = append(records, Record{
			TargetID:    field(row, "target_id"),
			URL:         field(row, "url"),
			DisplayName: field(row, "display_name"),
			JobTitle:    field(row, "job_title"),
			Company:     field(row, "company"),
		})
	}
	return records, nil
}
