// Package output persists serialized documents to the local filesystem.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
	"github.com/quantmind-br/matchgraph-go/internal/serialize"
	"github.com/quantmind-br/matchgraph-go/internal/utils"
)

// FileSink writes documents as JSON files, optionally gzip-compressed.
// Writes go through a temp file in the target directory and an atomic
// rename, so a crash mid-write never leaves a truncated document behind.
type FileSink struct {
	path      string
	gzip      bool
	overwrite bool
	logger    *utils.Logger
}

// FileSinkOptions configures a FileSink.
type FileSinkOptions struct {
	// Path is the output file path. A ".gz" suffix is appended when Gzip is
	// set and the path does not already carry one.
	Path      string
	Gzip      bool
	Overwrite bool
	Logger    *utils.Logger
}

// NewFileSink creates a file sink for the given path.
func NewFileSink(opts FileSinkOptions) (*FileSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("output: path is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	path := opts.Path
	if opts.Gzip && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	return &FileSink{
		path:      path,
		gzip:      opts.Gzip,
		overwrite: opts.Overwrite,
		logger:    opts.Logger.WithComponent("output"),
	}, nil
}

// Path returns the resolved output path.
func (s *FileSink) Path() string {
	return s.path
}

// Write renders the document to JSON and persists it.
func (s *FileSink) Write(ctx context.Context, doc *domain.SerializedGraph) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.overwrite {
		if _, err := os.Stat(s.path); err == nil {
			return fmt.Errorf("output: %s already exists", s.path)
		}
	}

	data, err := serialize.Marshal(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("output: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".matchgraph-*")
	if err != nil {
		return fmt.Errorf("output: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.writePayload(tmp, data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("output: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("output: rename into place: %w", err)
	}

	if len(doc.Warnings) > 0 {
		if err := s.writeWarnings(doc.Warnings); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to write warnings file")
		}
	}

	s.logger.Info().
		Str("path", s.path).
		Int("matches", len(doc.Matches)).
		Int("warnings", len(doc.Warnings)).
		Bool("gzip", s.gzip).
		Msg("Document written")

	return nil
}

// WarningsPath returns the sidecar file that receives the run's warnings.
func (s *FileSink) WarningsPath() string {
	base := strings.TrimSuffix(s.path, ".gz")
	base = strings.TrimSuffix(base, ".json")
	return base + ".warnings.json"
}

// writeWarnings dumps the non-fatal warnings next to the document, so a
// batch consumer can triage degraded extractions without parsing documents.
func (s *FileSink) writeWarnings(warnings []domain.Warning) error {
	data, err := json.MarshalIndent(warnings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.WarningsPath(), data, 0o644)
}

func (s *FileSink) writePayload(f *os.File, data []byte) error {
	if !s.gzip {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("output: write document: %w", err)
		}
		return nil
	}

	gw := gzip.NewWriter(f)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return fmt.Errorf("output: write compressed document: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("output: flush compressed document: %w", err)
	}
	return nil
}

var _ domain.Sink = (*FileSink)(nil)
