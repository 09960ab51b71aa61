// Package loader runs an ingestion: it resets the record store once, then
// parses, extracts and inserts every track file in a directory. Failures are
// isolated to the smallest record they affect and logged; the run continues.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trackqa/internal/extractor"
	"trackqa/internal/gpx"
	"trackqa/internal/storage"
)

// Extensions lists the file extensions picked up from the input directory.
var Extensions = []string{".xml", ".gpx"}

// Summary reports what a run did.
type Summary struct {
	RunID          string        `json:"run_id"`
	Dir            string        `json:"dir"`
	Files          int           `json:"files"`
	FilesFailed    int           `json:"files_failed"`
	StatsInserted  int           `json:"stats_inserted"`
	StatsFailed    int           `json:"stats_failed"`
	PointsInserted int           `json:"points_inserted"`
	PointsFailed   int           `json:"points_failed"`
	FieldErrors    int           `json:"field_errors"`
	Duration       time.Duration `json:"duration"`
}

// FileResult reports the outcome for a single file.
type FileResult struct {
	File           string
	ParseErr       error
	StatsFound     bool
	StatsInserted  bool
	StatsErr       error
	PointsInserted int
	PointsFailed   int
	FieldErrors    int
}

// Loader inserts extracted records into a Store.
type Loader struct {
	store  storage.Store
	logger *zap.Logger
}

// New creates a Loader. A nil logger discards output.
func New(store storage.Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// Run resets the store and loads every track file found in dir.
// Only listing the directory, resetting the store, or cancellation of ctx
// abort the run; a cancelled run leaves a partially loaded store.
func (l *Loader) Run(ctx context.Context, dir string) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString(), Dir: dir}
	log := l.logger.With(zap.String("run_id", sum.RunID))

	files, err := SourceFiles(dir)
	if err != nil {
		return sum, err
	}

	if err := l.store.Reset(ctx); err != nil {
		return sum, fmt.Errorf("reset store: %w", err)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}

		log.Info("Processing", zap.String("file", path))
		res := l.LoadFile(ctx, path)

		sum.Files++
		if res.ParseErr != nil {
			sum.FilesFailed++
			continue
		}
		if res.StatsInserted {
			sum.StatsInserted++
		} else if res.StatsFound {
			sum.StatsFailed++
		}
		sum.PointsInserted += res.PointsInserted
		sum.PointsFailed += res.PointsFailed
		sum.FieldErrors += res.FieldErrors
	}

	sum.Duration = time.Since(start)
	log.Info("All files processed",
		zap.Int("files", sum.Files),
		zap.Int("files_failed", sum.FilesFailed),
		zap.Int("stats_inserted", sum.StatsInserted),
		zap.Int("points_inserted", sum.PointsInserted),
		zap.Int("points_failed", sum.PointsFailed),
		zap.Duration("duration", sum.Duration))
	return sum, nil
}

// LoadFile parses one file and inserts its records. It does not reset the store.
func (l *Loader) LoadFile(ctx context.Context, path string) FileResult {
	root, err := gpx.ParseFile(path)
	if err != nil {
		l.logger.Error("Error parsing file", zap.String("file", path), zap.Error(err))
		return FileResult{File: path, ParseErr: err}
	}
	return l.LoadTree(ctx, path, root)
}

// LoadTree extracts and inserts the records of an already parsed document.
func (l *Loader) LoadTree(ctx context.Context, name string, root *gpx.Node) FileResult {
	log := l.logger.With(zap.String("file", name))
	res := FileResult{File: name}

	data := extractor.Extract(root)

	switch {
	case data.StatsErr != nil:
		res.StatsFound = true
		res.StatsErr = data.StatsErr
		log.Error("Error inserting track stats", zap.Error(data.StatsErr))
	case data.Stats != nil:
		res.StatsFound = true
		if _, err := l.store.InsertStats(ctx, *data.Stats); err != nil {
			res.StatsErr = err
			log.Error("Error inserting track stats", zap.Error(err))
		} else {
			res.StatsInserted = true
			log.Info("Inserted track stats")
		}
	}

	for _, fe := range data.FieldErrors {
		log.Warn("Unreadable track point field recorded as unknown",
			zap.Int("point", fe.Point), zap.String("field", fe.Field), zap.String("value", fe.Value), zap.Error(fe.Err))
	}
	res.FieldErrors = len(data.FieldErrors)

	for i, p := range data.Points {
		if _, err := l.store.InsertPoint(ctx, p); err != nil {
			res.PointsFailed++
			log.Error("Error inserting track point", zap.Int("point", i), zap.Error(err))
			continue
		}
		res.PointsInserted++
	}
	log.Info("Inserted track points", zap.Int("count", res.PointsInserted), zap.Int("failed", res.PointsFailed))

	return res
}

// SourceFiles lists track files directly inside dir, sorted by name.
func SourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range Extensions {
			if ext == want {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
