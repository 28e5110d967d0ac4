// Package sink writes extracted records to timestamped files.
package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/blockcrawl/models"
)

// timeLayout names output files YYYY-MM-DD_HH-MM-SS.
const timeLayout = "2006-01-02_15-04-05"

// SaveRecords writes records to dir/<now>.txt as "key: value" lines with a
// blank line between records. Keys listed in order come first, in that order;
// any other keys follow sorted. It returns the absolute path of the file, or
// "" without touching the file system when records is empty.
func SaveRecords(records []models.Record, order []string, dir string, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	return write(dir, now.Format(timeLayout)+".txt", func(w *bufio.Writer) error {
		for i, rec := range records {
			if i > 0 {
				if _, err := w.WriteString("\n"); err != nil {
					return err
				}
			}
			for _, k := range orderedKeys(rec, order) {
				if _, err := fmt.Fprintf(w, "%s: %s\n", k, formatValue(rec[k])); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SaveJSON writes records to dir/<now>.json as an indented JSON array.
// Like SaveRecords it writes nothing for an empty slice.
func SaveJSON(records []models.Record, dir string, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	return write(dir, now.Format(timeLayout)+".json", func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	})
}

func write(dir, name string, body func(*bufio.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("sink: create %s: %w", dir, err)
	}
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("sink: resolve path: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("sink: create file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := body(w); err != nil {
		f.Close()
		return "", fmt.Errorf("sink: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("sink: flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("sink: close %s: %w", path, err)
	}
	slog.Info("records saved", "path", path)
	return path, nil
}

func orderedKeys(rec models.Record, order []string) []string {
	keys := make([]string, 0, len(rec))
	listed := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := rec[k]; ok && !listed[k] {
			keys = append(keys, k)
			listed[k] = true
		}
	}
	rest := make([]string, 0, len(rec)-len(keys))
	for k := range rec {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	}
	return fmt.Sprint(v)
}
