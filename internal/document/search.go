package document

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxSearchResults bounds a single archive search for responsiveness.
const maxSearchResults = 500

// SearchCriteria narrows an archive search. All supplied criteria are ANDed;
// empty fields match everything.
type SearchCriteria struct {
	// Text is a case-insensitive substring match on the filename.
	Text string
	// Grade matches exactly after the filename cleaning rule.
	Grade string
	// Melt is a substring match on the filename's melt field.
	Melt string
	// Shape is a case-insensitive substring match on the size/shape segment.
	Shape string
	// OrderNumber restricts the walk to that order's subtree.
	OrderNumber string
}

// Search walks the archive trees and returns paths of certificates matching
// every supplied criterion, capped at maxSearchResults. Results are in
// lexical walk order, so an identical query over an unchanged tree returns
// the identical set.
func (m *Manager) Search(ctx context.Context, criteria SearchCriteria) ([]string, error) {
	root := filepath.Join(m.archiveRoot, byOrderDir)
	if order := strings.TrimSpace(criteria.OrderNumber); order != "" {
		root = filepath.Join(root, sanitize(order))
	}

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	text := strings.ToLower(strings.TrimSpace(criteria.Text))
	grade := CleanGrade(criteria.Grade)
	melt := strings.ToLower(strings.TrimSpace(criteria.Melt))
	shape := strings.ToLower(strings.TrimSpace(criteria.Shape))

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}

		name := strings.ToLower(d.Name())
		if text != "" && !strings.Contains(name, text) {
			return nil
		}
		if melt != "" && !strings.Contains(name, melt) {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")
		if grade != "" && !containsSegment(segments, grade) {
			return nil
		}
		if shape != "" && !segmentContains(segments, shape) {
			return nil
		}

		matches = append(matches, path)
		if len(matches) >= maxSearchResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func containsSegment(segments []string, want string) bool {
	for _, s := range segments {
		if s == want {
			return true
		}
	}
	return false
}

func segmentContains(segments []string, sub string) bool {
	for _, s := range segments {
		if strings.Contains(strings.ToLower(s), sub) {
			return true
		}
	}
	return false
}
