package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hyperjump/kotae/internal/models"
)

// writeMeta writes records to path as newline-delimited JSON, one record per
// vector store row, in row order.
func writeMeta(path string, records []*models.IndexRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush metadata: %w", err)
	}
	return f.Sync()
}

// readMeta reads the newline-delimited metadata sidecar at path.
func readMeta(path string) ([]*models.IndexRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()
	var records []*models.IndexRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec models.IndexRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decode metadata line %d: %w", line, err)
		}
		records = append(records, &rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return records, nil
}
