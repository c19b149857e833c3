// Package loader walks a repository tree and turns eligible files into
// chunk documents.
//
// Files are enumerated with include/exclude glob filtering and dispatched
// across a bounded worker pool. Each file is processed independently:
// classification, recursive splitting, metadata, contextual prefix. A
// failure in one file is logged and isolated; it never aborts the run.
// Chunk order within a file is preserved, while the order files complete
// in is not deterministic.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/casablancahotelsoftware/tech-lab/internal/classifier"
	"github.com/casablancahotelsoftware/tech-lab/internal/document"
	"github.com/casablancahotelsoftware/tech-lab/internal/ignore"
	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
	"github.com/casablancahotelsoftware/tech-lab/internal/splitter"
)

// DefaultIncludePatterns favor source, markup, and project files.
var DefaultIncludePatterns = []string{
	"*.cs", "*.md", "*.json", "*.xml", "*.txt", "*.csproj", "*.sln",
}

// DefaultExcludePatterns remove build output, dependencies, and version
// control directories.
var DefaultExcludePatterns = []string{
	"**/bin/**", "**/obj/**", "**/.git/**", "**/packages/**",
	"**/node_modules/**", "**/.vs/**", "**/wwwroot/lib/**",
}

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// ProgressFunc receives progress updates as files complete. processed is
// strictly monotonic across calls; file is the name of the file that just
// finished. Called from worker goroutines, so implementations must be
// safe for concurrent use.
type ProgressFunc func(processed, total int, file string)

// Config holds loader construction parameters.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the chunk overlap in characters.
	ChunkOverlap int

	// RootMarker identifies the repository's top path component for
	// source canonicalization.
	RootMarker string

	// Workers bounds the worker pool. Defaults to DefaultWorkers.
	Workers int
}

// Options controls a single Load run.
type Options struct {
	// IncludePatterns select files by basename or relative-path glob.
	// Defaults to DefaultIncludePatterns.
	IncludePatterns []string

	// ExcludePatterns drop files matching any entry.
	// Defaults to DefaultExcludePatterns.
	ExcludePatterns []string

	// UseIgnoreFiles extends ExcludePatterns with the root's
	// gitignore-style files.
	UseIgnoreFiles bool

	// Progress receives per-file completion updates. Optional.
	Progress ProgressFunc
}

// Loader turns repository files into chunk documents.
type Loader struct {
	classifier *classifier.Classifier
	splitter   *splitter.Splitter
	builder    *document.Builder
	workers    int
	logger     *logging.Logger
}

// New creates a loader. tokens must not be nil; logger may be nil, in
// which case logging is discarded.
func New(cfg Config, tokens document.TokenCounter, logger *logging.Logger) (*Loader, error) {
	split, err := splitter.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("configuring splitter: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Loader{
		classifier: classifier.New(),
		splitter:   split,
		builder:    document.NewBuilder(cfg.RootMarker, tokens),
		workers:    workers,
		logger:     logger.Named("loader"),
	}, nil
}

// Load enumerates eligible files under root and processes them across the
// worker pool, returning the aggregated chunk documents.
//
// A missing or non-directory root is a fatal error. Individual file
// failures are logged and contribute zero documents. The returned
// collection is unordered across files; chunks from one file keep their
// order relative to each other.
func (l *Loader) Load(ctx context.Context, root string, opts Options) ([]document.ChunkDocument, error) {
	cleanRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}

	includes := opts.IncludePatterns
	if includes == nil {
		includes = DefaultIncludePatterns
	}
	excludes := opts.ExcludePatterns
	if excludes == nil {
		excludes = DefaultExcludePatterns
	}
	if err := validatePatterns(includes); err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	if err := validatePatterns(excludes); err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	if opts.UseIgnoreFiles {
		ignorePatterns, err := ignore.LoadPatterns(cleanRoot)
		if err != nil {
			return nil, fmt.Errorf("reading ignore files: %w", err)
		}
		excludes = append(append([]string{}, excludes...), ignorePatterns...)
	}

	files, err := l.listFiles(cleanRoot, includes, excludes)
	if err != nil {
		return nil, fmt.Errorf("enumerating files: %w", err)
	}

	l.logger.Info("processing repository",
		zap.String("root", cleanRoot),
		zap.Int("files", len(files)),
		zap.Int("workers", l.workers))

	total := len(files)
	jobs := make(chan string)
	results := make(chan []document.ChunkDocument)
	var processed atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				docs := l.ProcessFile(file)
				done := int(processed.Add(1))
				if opts.Progress != nil {
					opts.Progress(done, total, filepath.Base(file))
				}
				results <- docs
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, file := range files {
			select {
			case jobs <- file:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []document.ChunkDocument
	for docs := range results {
		all = append(all, docs...)
	}

	if err := ctx.Err(); err != nil {
		return all, err
	}

	l.logger.Info("repository processed",
		zap.Int("files", total),
		zap.Int("documents", len(all)))
	return all, nil
}

// ProcessFile turns one file into an ordered sequence of chunk documents.
// Every failure mode is contained here: unreadable or empty files yield a
// warning and no documents, anything unexpected yields an error log and
// no documents. It never panics outward.
func (l *Loader) ProcessFile(filePath string) (docs []document.ChunkDocument) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic while processing file",
				zap.String("file", filePath),
				zap.Any("panic", r))
			docs = nil
		}
	}()

	content, ok := l.readFileText(filePath)
	if !ok || content == "" {
		return nil
	}

	chunks := l.splitter.Split(content)
	if len(chunks) == 0 {
		return nil
	}

	fileType := l.classifier.Classify(filepath.Base(filePath))
	total := len(chunks)

	docs = make([]document.ChunkDocument, 0, total)
	for i, chunk := range chunks {
		md, err := l.builder.BuildMetadata(filePath, fileType, chunk, i, total)
		if err != nil {
			l.logger.Error("building metadata failed",
				zap.String("file", filePath),
				zap.Int("chunk", i),
				zap.Error(err))
			return nil
		}
		docs = append(docs, document.New(chunk, md))
	}

	return docs
}

// readFileText reads a file as text with a lossy decode fallback: invalid
// byte sequences are replaced rather than failing the file. Unreadable or
// empty files are a normal non-fatal outcome, reported at Warn.
func (l *Loader) readFileText(filePath string) (string, bool) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		l.logger.Warn("skipping unreadable file",
			zap.String("file", filePath),
			zap.Error(err))
		return "", false
	}
	if len(data) == 0 {
		l.logger.Warn("skipping empty file", zap.String("file", filePath))
		return "", false
	}

	return strings.ToValidUTF8(string(data), "�"), true
}

// validateRoot validates and cleans the repository root path.
func validateRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("root path cannot be empty")
	}

	cleanRoot := filepath.Clean(root)
	info, err := os.Stat(cleanRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("root path does not exist: %s", cleanRoot)
		}
		return "", fmt.Errorf("stat root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root path must be a directory: %s", cleanRoot)
	}

	return cleanRoot, nil
}

// validatePatterns rejects malformed glob patterns up front.
func validatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		probe := strings.ReplaceAll(pattern, "**", "*")
		if _, err := filepath.Match(probe, "probe"); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	return nil
}
