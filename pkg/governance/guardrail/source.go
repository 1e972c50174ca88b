package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk format of a guardrail file.
type fileDocument struct {
	Guardrails []Definition `yaml:"guardrails"`
}

// FileSource loads guardrail definitions from YAML files on disk.
// The path can be a single file or a directory of .yaml/.yml files.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a new file-based guardrail source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "guardrail.source"),
	}
}

// Path returns the configured file or directory.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads every definition from the configured path. Files in a
// directory that fail to parse are skipped and logged.
func (s *FileSource) Load() ([]Definition, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	if !info.IsDir() {
		return s.loadFile(s.path)
	}

	var defs []Definition
	err = filepath.WalkDir(s.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isYAML(path) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		fileDefs, err := s.loadFile(path)
		if err != nil {
			s.logger.Warn("failed to load guardrail file, skipping",
				"path", path,
				"error", err,
			)
			return nil
		}
		defs = append(defs, fileDefs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	return defs, nil
}

// Actor is the identity recorded for guardrails applied from this source.
func (s *FileSource) Actor() string {
	return "file:" + s.path
}

// Apply loads the configured path and hands every definition to sink.
// Definitions without an id or failing validation are reported together;
// valid definitions are still applied.
func (s *FileSource) Apply(ctx context.Context, sink Sink) (int, error) {
	defs, err := s.Load()
	if err != nil {
		return 0, err
	}

	applied, err := sink.ApplyGuardrails(ctx, defs, s.Actor())

	s.logger.Info("applied guardrails from source",
		"path", s.path,
		"applied", applied,
		"rejected", len(defs)-applied,
	)

	return applied, err
}

func (s *FileSource) loadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse guardrail file %q: %w", path, err)
	}

	s.logger.Debug("loaded guardrail file",
		"path", path,
		"guardrail_count", len(doc.Guardrails),
	)

	return doc.Guardrails, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
