package debugger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("debugger: unknown export format")

// FormatFromPath picks the export format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

type record struct {
	ID         string        `json:"id" yaml:"id"`
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
	Store      string        `json:"store" yaml:"store"`
	Kind       Kind          `json:"kind" yaml:"kind"`
	IntentType string        `json:"intentType" yaml:"intentType"`
	Intent     any           `json:"intent,omitempty" yaml:"intent,omitempty"`
	OldState   any           `json:"oldState,omitempty" yaml:"oldState,omitempty"`
	NewState   any           `json:"newState,omitempty" yaml:"newState,omitempty"`
	Outcome    string        `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Started    *time.Time    `json:"started,omitempty" yaml:"started,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
}

func toRecord(e Entry) record {
	r := record{
		ID:         e.ID.String(),
		Timestamp:  e.Timestamp,
		Store:      e.Store,
		Kind:       e.Kind,
		IntentType: e.IntentType,
		Intent:     e.Intent,
		OldState:   e.OldState,
		NewState:   e.NewState,
		Outcome:    e.Outcome,
	}
	if e.Kind == KindIntent && !e.Span.Start().IsZero() {
		started := e.Span.Start()
		r.Started = &started
		r.Elapsed = e.Span.Duration()
	}
	return r
}

// Export writes every stored entry to w after waiting for pending ones.
func (r *Recorder) Export(w io.Writer, format Format) error {
	r.Sync()
	entries := r.Entries()
	records := make([]record, len(entries))
	for i, e := range entries {
		records[i] = toRecord(e)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return multierr.Append(enc.Encode(records), enc.Close())
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ExportToFile writes the entries to path in the format its extension names.
func (r *Recorder) ExportToFile(path string) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("debugger: create %s: %w", path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return r.Export(f, format)
}
