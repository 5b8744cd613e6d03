package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/grid-capacity-etl/internal/config"
	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
)

// Source is one input file and the schema it follows.
type Source struct {
	Operator string `json:"operator"`
	Path     string `json:"path"`
	Schema   string `json:"schema,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

type manifest struct {
	Sources []Source `json:"sources"`
}

// LoadManifest reads a JSON source list. Relative paths are resolved
// against the manifest's directory. Both {"sources": [...]} and a bare
// array are accepted.
func LoadManifest(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		var list []Source
		if errList := json.Unmarshal(data, &list); errList != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
		m.Sources = list
	}
	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("manifest %s: %w", path, domain.ErrNoSources)
	}

	dir := filepath.Dir(path)
	for i := range m.Sources {
		s := &m.Sources[i]
		if s.Path == "" {
			return nil, fmt.Errorf("manifest %s: source %d has no path", path, i)
		}
		if !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(dir, s.Path)
		}
		if _, err := domain.LookupSchema(s.Schema); err != nil {
			return nil, fmt.Errorf("manifest %s: source %d: %w", path, i, err)
		}
	}
	return m.Sources, nil
}

// SourcesFromConfig returns the manifest sources when SOURCES_FILE is set,
// otherwise the single source described by SOURCE_PATH.
func SourcesFromConfig(cfg *config.Config) ([]Source, error) {
	if cfg.SourcesFile != "" {
		return LoadManifest(cfg.SourcesFile)
	}
	if cfg.SourcePath == "" {
		return nil, errors.New("no source configured: set SOURCES_FILE or SOURCE_PATH")
	}
	return []Source{{
		Operator: cfg.SourceOperator,
		Path:     cfg.SourcePath,
		Schema:   cfg.SourceSchema,
		Encoding: cfg.SourceEncoding,
	}}, nil
}
