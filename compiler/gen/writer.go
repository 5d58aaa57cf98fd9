package gen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileWriter formats and writes generated files with parallel execution.
type FileWriter struct {
	backend Backend
	outDir  string
	workers int
	atomic  bool
	logger  *slog.Logger

	// Metrics for performance monitoring
	mu      sync.Mutex
	metrics *WriterMetrics
}

// WriterMetrics tracks generation performance
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
	FormatTime     int64 // nanoseconds
	WriteTime      int64 // nanoseconds
}

// FileResult is the outcome of writing one file.
type FileResult struct {
	File  string
	Path  string
	Bytes int
	Err   error

	// unformatted is where the contents of a file that failed to format
	// were written.
	unformatted string
}

// NewFileWriter creates a writer that formats files with b and writes them
// below outDir.
func NewFileWriter(b Backend, outDir string) *FileWriter {
	return &FileWriter{
		backend: b,
		outDir:  outDir,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
		metrics: &WriterMetrics{},
	}
}

// WithWorkers sets the number of parallel workers.
func (w *FileWriter) WithWorkers(n int) *FileWriter {
	if n > 0 {
		w.workers = n
	}
	return w
}

// WithAtomic stages files in a temporary directory inside the output folder
// and renames them into place only when every file was written.
func (w *FileWriter) WithAtomic(atomic bool) *FileWriter {
	w.atomic = atomic
	return w
}

// WithLogger sets the logger.
func (w *FileWriter) WithLogger(l *slog.Logger) *FileWriter {
	if l != nil {
		w.logger = l
	}
	return w
}

// Metrics returns the generation metrics.
func (w *FileWriter) Metrics() *WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := *w.metrics
	return &m
}

// WriteAll writes every file concurrently and waits for all of them. One
// result is returned per file, in input order. The error joins the failures
// of every file.
func (w *FileWriter) WriteAll(ctx context.Context, files []File) ([]FileResult, error) {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	dir := w.outDir
	if w.atomic {
		stage, err := os.MkdirTemp(w.outDir, ".typegen-")
		if err != nil {
			return nil, fmt.Errorf("create staging directory: %w", err)
		}
		dir = stage
	}

	results := make([]FileResult, len(files))
	var eg errgroup.Group
	eg.SetLimit(w.workers)
	for i, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = FileResult{File: f.Name, Path: w.path(f), Err: ctx.Err()}
			default:
				results[i] = w.writeFile(dir, f)
			}
			// Failures are reported per file so that every write runs.
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, &WriteError{File: r.File, Cause: r.Err})
		}
	}
	if !w.atomic {
		return results, errors.Join(errs...)
	}
	if len(errs) > 0 {
		w.discard(dir, files, results)
		return results, errors.Join(errs...)
	}
	defer os.RemoveAll(dir)
	for i, f := range files {
		if err := w.commit(dir, f); err != nil {
			results[i].Err = err
			errs = append(errs, &WriteError{File: f.Name, Cause: err})
		}
	}
	return results, errors.Join(errs...)
}

// discard drops the staged files of a failed atomic run. The staging
// directory survives only if it holds unformatted sources.
func (w *FileWriter) discard(stage string, files []File, results []FileResult) {
	w.logger.Warn("discarding staged files", "files", len(files))
	keep := false
	for i := range results {
		if results[i].unformatted != "" {
			keep = true
		}
		if results[i].Err == nil {
			_ = os.Remove(filepath.Join(stage, files[i].Name))
			results[i].Err = errors.New("discarded: another file failed")
		}
	}
	if !keep {
		_ = os.RemoveAll(stage)
		return
	}
	w.logger.Warn("kept unformatted sources", "dir", stage)
}

func (w *FileWriter) path(f File) string {
	return filepath.Join(w.outDir, f.Name)
}

// writeFile formats f and writes it below dir.
func (w *FileWriter) writeFile(dir string, f File) FileResult {
	res := FileResult{File: f.Name, Path: w.path(f)}

	// 1. Format and validate
	start := time.Now()
	formatted, err := w.backend.Format(res.Path, []byte(f.Contents))
	formatTime := time.Since(start)
	if err != nil {
		// Write unformatted file for debugging (errors intentionally ignored as we're already in error state)
		debugPath := filepath.Join(dir, f.Name) + ".error"
		_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
		if os.WriteFile(debugPath, []byte(f.Contents), 0o644) == nil {
			res.unformatted = debugPath
		}
		res.Err = fmt.Errorf("format %s: %w (unformatted written to %s)", f.Name, err, debugPath)
		return res
	}

	// 2. Ensure directory exists
	target := filepath.Join(dir, f.Name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		res.Err = fmt.Errorf("create directory for %s: %w", f.Name, err)
		return res
	}

	// 3. Write file
	start = time.Now()
	if err := os.WriteFile(target, formatted, 0o644); err != nil {
		res.Err = err
		return res
	}
	res.Bytes = len(formatted)

	// Update metrics
	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(formatted))
	w.metrics.FormatTime += formatTime.Nanoseconds()
	w.metrics.WriteTime += time.Since(start).Nanoseconds()
	w.mu.Unlock()

	w.logger.Debug("wrote file", "file", f.Name, "bytes", len(formatted))
	return res
}

// commit moves a staged file into the output folder.
func (w *FileWriter) commit(stage string, f File) error {
	target := w.path(f)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(stage, f.Name), target)
}
