package index

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
)

var (
	titleRe   = regexp.MustCompile(`(?m)^\s*#\s+(.+)$`)
	sectionRe = regexp.MustCompile(`(?m)^\s*##\s+(.+)$`)
)

// guessTitleAndSection derives the document title from the first level-1
// markdown heading (falling back to the filename stem) and the section from
// the first level-2 heading (empty when absent).
func guessTitleAndSection(relPath, content string) (title, section string) {
	if m := titleRe.FindStringSubmatch(content); m != nil {
		title = strings.TrimSpace(m[1])
	} else {
		base := filepath.Base(relPath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if m := sectionRe.FindStringSubmatch(content); m != nil {
		section = strings.TrimSpace(m[1])
	}
	return title, section
}

// departmentOf returns the first path segment of the slash-separated
// relative path, or "general" for files directly under the corpus root.
func departmentOf(relPath string) string {
	if i := strings.IndexByte(relPath, '/'); i > 0 {
		return relPath[:i]
	}
	return "general"
}

// collectDocuments walks root recursively and reads every file whose
// extension is in exts, in deterministic walk order. Unreadable files fail
// the walk; an empty result is reported by the caller as ErrEmptyCorpus.
func collectDocuments(root string, exts []string, extractor *extract.Extractor) ([]*models.Document, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}
	var docs []*models.Document
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), exts) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		text, err := extractor.Extract(path)
		if err != nil {
			return fmt.Errorf("extract %s: %w", path, err)
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		rel = filepath.ToSlash(rel)
		title, section := guessTitleAndSection(rel, text)
		docs = append(docs, &models.Document{
			Path:       rel,
			Text:       text,
			Title:      title,
			Section:    section,
			Department: departmentOf(rel),
			UpdatedAt:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return docs, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	ext = strings.ToLower(ext)
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}
