// Package corpus runs the walker over a directory of resource files. A file
// that cannot be read or parsed yields one "File Level" row and the run
// moves on.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gofhir/txaudit/pkg/document"
	"github.com/gofhir/txaudit/pkg/result"
)

// Extension is the file extension of resource files.
const Extension = ".json"

// SkipDirs are directory names never entered in recursive mode.
var SkipDirs = []string{"assets", "temp", "templates"}

// Walker produces the rows for one document.
type Walker interface {
	Walk(ctx context.Context, doc *document.Document) []result.ValidationResult
}

// FileObserver is told how each file ended: "ok", "invalid_json" or "error".
type FileObserver interface {
	ObserveFile(status string, rows int)
}

// Driver iterates resource files.
type Driver struct {
	walker    Walker
	prefix    string
	recursive bool
	logger    zerolog.Logger
	observer  FileObserver
}

// Option configures a Driver.
type Option func(*Driver)

// WithPrefix only picks files whose name starts with prefix.
func WithPrefix(prefix string) Option {
	return func(d *Driver) {
		d.prefix = prefix
	}
}

// WithRecursive descends into subdirectories, except SkipDirs.
func WithRecursive(recursive bool) Option {
	return func(d *Driver) {
		d.recursive = recursive
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithFileObserver registers an observer for per-file outcomes.
func WithFileObserver(o FileObserver) Option {
	return func(d *Driver) {
		d.observer = o
	}
}

// New creates a Driver.
func New(w Walker, opts ...Option) *Driver {
	d := &Driver{
		walker: w,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("component", "corpus").Logger()
	return d
}

// Files lists the resource files under dir in lexical order. Only regular
// files are returned; hidden files are skipped.
func (d *Driver) Files(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus %s is not a directory", dir)
	}

	var files []string
	if !d.recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list corpus: %w", err)
		}
		for _, entry := range entries {
			p := filepath.Join(dir, entry.Name())
			if d.matches(entry.Name()) && isRegular(p) {
				files = append(files, p)
			}
		}
		slices.Sort(files)
		return files, nil
	}

	err = filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if p != dir && slices.Contains(SkipDirs, entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.matches(entry.Name()) && isRegular(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

func (d *Driver) matches(name string) bool {
	if strings.HasPrefix(name, ".") && !strings.HasPrefix(d.prefix, ".") {
		return false
	}
	return strings.HasPrefix(name, d.prefix) && strings.HasSuffix(name, Extension)
}

// Run audits every file under dir and returns all rows in file order. Only
// a failure to list dir, or cancellation of ctx, is returned as an error;
// in the latter case the rows gathered so far are returned with it.
func (d *Driver) Run(ctx context.Context, dir string) ([]result.ValidationResult, error) {
	files, err := d.Files(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		d.logger.Warn().Str("dir", dir).Msg("no resource files found")
	}

	var rows []result.ValidationResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		rows = append(rows, d.RunFile(ctx, file)...)
	}
	return rows, nil
}

// RunFile audits one file. It never fails; problems become a single
// "File Level" row.
func (d *Driver) RunFile(ctx context.Context, file string) (rows []result.ValidationResult) {
	name := filepath.Base(file)
	log := d.logger.With().Str("file", name).Logger()
	log.Info().Msg("processing instance")

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("unexpected error processing file")
			rows = []result.ValidationResult{result.FileError(name, fmt.Sprintf("Unexpected error: %v", r))}
			d.observe("error", 1)
		}
	}()

	data, err := os.ReadFile(file)
	if err != nil {
		log.Error().Err(err).Msg("unexpected error processing file")
		d.observe("error", 1)
		return []result.ValidationResult{result.FileError(name, "Unexpected error: "+err.Error())}
	}

	doc, err := document.Parse(name, data)
	switch {
	case errors.Is(err, document.ErrInvalidJSON):
		log.Error().Err(err).Msg("invalid JSON, skipping")
		d.observe("invalid_json", 1)
		return []result.ValidationResult{result.FileError(name, result.ReasonFileInvalidJSON)}
	case err != nil:
		log.Error().Err(err).Msg("unexpected error processing file")
		d.observe("error", 1)
		return []result.ValidationResult{result.FileError(name, "Unexpected error: "+err.Error())}
	}

	rows = d.walker.Walk(ctx, doc)
	d.observe("ok", len(rows))
	return rows
}

func (d *Driver) observe(status string, rows int) {
	if d.observer != nil {
		d.observer.ObserveFile(status, rows)
	}
}

func isRegular(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
