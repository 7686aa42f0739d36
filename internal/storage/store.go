// Package storage persists crawl results: a timestamped JSON artifact by
// default, a flat CSV export on request, and an optional MongoDB backend.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"cartscout/internal/types"
)

// FileStore writes result sets to a local data directory.
type FileStore struct {
	dataDir string
	logger  *slog.Logger
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dataDir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create data dir: %w", err)}
	}
	return &FileStore{
		dataDir: dataDir,
		logger:  logger.With("component", "file_store"),
	}, nil
}

// Save writes the full nested result set as indented UTF-8 JSON. When
// filename is empty one is derived from the current timestamp. Non-ASCII
// characters are preserved literally.
func (s *FileStore) Save(listings []types.Listing, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("products_%s.json", time.Now().Format("20060102_150405"))
	}
	path := filepath.Join(s.dataDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", &types.StorageError{Backend: "json", Err: err}
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(listings); err != nil {
		return "", &types.StorageError{Backend: "json", Err: fmt.Errorf("encode: %w", err)}
	}

	s.logger.Info("products saved", "path", path, "count", len(listings))
	return path, nil
}

// Load reads a stored artifact back into memory. A saved result set loads
// field-for-field equal to what was saved.
func (s *FileStore) Load(path string) ([]types.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "json", Err: err}
	}
	var listings []types.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return listings, nil
}

// ExportCSV writes one flat row per listing, the header row taken from the
// keys of the first record. Not part of the default save path.
func (s *FileStore) ExportCSV(listings []types.Listing, filename string) (string, error) {
	if len(listings) == 0 {
		return "", &types.StorageError{Backend: "csv", Err: fmt.Errorf("nothing to export")}
	}
	path := filepath.Join(s.dataDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", &types.StorageError{Backend: "csv", Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)

	headers := flatKeys(flatten(listings[0]))
	if err := w.Write(headers); err != nil {
		return "", &types.StorageError{Backend: "csv", Err: fmt.Errorf("write header: %w", err)}
	}

	for _, l := range listings {
		flat := flatten(l)
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = flat[h]
		}
		if err := w.Write(row); err != nil {
			return "", &types.StorageError{Backend: "csv", Err: fmt.Errorf("write row: %w", err)}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", &types.StorageError{Backend: "csv", Err: err}
	}

	s.logger.Info("CSV exported", "path", path, "rows", len(listings))
	return path, nil
}

// flatten turns a listing into one flat record; embedded reviews collapse
// to their count.
func flatten(l types.Listing) map[string]string {
	return map[string]string{
		"title":         l.Title,
		"price":         l.Price,
		"rating":        strconv.FormatFloat(l.Rating, 'f', 1, 64),
		"reviews_count": strconv.Itoa(l.ReviewsCount),
		"url":           l.URL,
		"reviews":       strconv.Itoa(len(l.Reviews)),
	}
}

func flatKeys(flat map[string]string) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
