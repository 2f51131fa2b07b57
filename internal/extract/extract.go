// Package extract turns document files into page-level text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"

	"medical-rag/internal/models"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// File extracts the pages of a single document. PDF is the primary format;
// plain text and docx are accepted for single-file ingestion and yield one
// page each. Page numbers start at 1.
func File(path string) ([]models.Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("document not found: %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return extractPDF(path)
	case ".txt":
		return extractText(path)
	case ".docx":
		return extractDOCX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Dir extracts pages from every PDF directly inside dir, non-recursive.
// Sub-directories and non-PDF entries are skipped. A file that fails to
// extract is logged and skipped rather than aborting the whole directory.
func Dir(dir string) ([]models.Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s: %w", dir, err)
	}

	var all []models.Page
	found := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".pdf" {
			log.Debug().Str("entry", entry.Name()).Msg("Skipping non-PDF entry")
			continue
		}
		found++
		path := filepath.Join(dir, entry.Name())
		pages, err := extractPDF(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to extract PDF, skipping")
			continue
		}
		all = append(all, pages...)
	}

	if found == 0 {
		log.Warn().Str("dir", dir).Msg("No PDF files found in directory")
	}
	return all, nil
}

func extractPDF(path string) (pages []models.Page, err error) {
	// The pdf library panics on some malformed files; turn that into an
	// error so directory ingestion can skip the file.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to read PDF %s: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", path, err)
	}

	source := filepath.Base(path)
	totalPages := reader.NumPage()
	log.Info().Str("file", source).Int("pages", totalPages).Msg("Extracting PDF")

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			log.Warn().Str("file", source).Int("page", i).Msg("Skipping null page")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// One bad page must not sink the document.
			log.Warn().Err(err).Str("file", source).Int("page", i).Msg("Skipping unreadable page")
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, models.Page{
			Text:       text,
			PageNumber: i,
			Source:     source,
			TotalPages: totalPages,
		})
	}

	log.Info().Str("file", source).Int("extracted", len(pages)).Msg("Extracted pages")
	return pages, nil
}

func extractText(path string) ([]models.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []models.Page{{
		Text:       text,
		PageNumber: 1,
		Source:     filepath.Base(path),
		TotalPages: 1,
	}}, nil
}

func extractDOCX(path string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return nil, nil
	}
	// DOCX carries no page boundaries, the whole document is one page.
	return []models.Page{{
		Text:       text,
		PageNumber: 1,
		Source:     filepath.Base(path),
		TotalPages: 1,
	}}, nil
}
