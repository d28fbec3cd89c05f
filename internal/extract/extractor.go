// Package extract parses the announcements page into records.
//
// The page is a table where each row holds a serial number, the issuing
// body, a link opening a Bootstrap modal with the announcement text, and a
// date label. The modal lives off-row and is referenced by the link's
// data-bs-target selector.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
)

const (
	rowSelector       = "#announcement tbody tr"
	modalBodySelector = ".modal-body"
)

// Extractor turns a fetched document into announce.Records.
type Extractor struct {
	source string
	clock  announce.Clock
	logger *zap.Logger
}

// New builds an Extractor tagging records with the given source constant.
func New(source string, clock announce.Clock, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{source: source, clock: clock, logger: logger}
}

// Extract parses the document and returns records in source order. A
// malformed row is skipped and logged; it never fails the batch. Only a
// document that cannot be parsed at all yields an error.
func (e *Extractor) Extract(html []byte, baseURL string) ([]announce.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}

	var records []announce.Record
	doc.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		rec, err := e.extractRow(doc, row, base)
		if err != nil {
			e.logger.Warn("skipping malformed row", zap.Int("row", i), zap.Error(err))
			return
		}
		if rec != nil {
			records = append(records, *rec)
		}
	})
	return records, nil
}

// extractRow returns (nil, nil) for rows that simply do not qualify, and an
// error only for rows that blew up mid-parse.
func (e *Extractor) extractRow(doc *goquery.Document, row *goquery.Selection, base *url.URL) (rec *announce.Record, err error) {
	// A referenced modal selector with invalid syntax must not take down
	// the rest of the batch.
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &announce.ParseError{Err: fmt.Errorf("row panicked: %v", r)}
		}
	}()

	cells := row.Find("td")
	if cells.Length() < 4 {
		return nil, nil
	}

	serial := strings.TrimSpace(cells.Eq(0).Text())
	title := strings.TrimSpace(cells.Eq(1).Text())
	dateLabel := strings.TrimSpace(cells.Eq(3).Text())

	var description string
	if target, ok := cells.Eq(2).Find("a").Attr("data-bs-target"); ok {
		modal := doc.Find(strings.TrimSpace(target))
		if modal.Length() > 0 {
			description = NormalizeModalText(modal.Find(modalBodySelector).Text())
			description += formatAttachments(modal, base)
		}
	}

	if serial == "" || title == "" || dateLabel == "" || description == "" {
		return nil, nil
	}
	return &announce.Record{
		Title:       title,
		Description: description,
		Time:        dateLabel,
		Source:      e.source,
		ScrapedAt:   e.clock.Now(),
	}, nil
}

// formatAttachments collects the modal's hyperlinks, resolves them against
// the base URL, and renders the trailing Attachments section. Returns ""
// when the modal has no links.
func formatAttachments(modal *goquery.Selection, base *url.URL) string {
	var links []string
	modal.Find(modalBodySelector + " a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		links = append(links, fmt.Sprintf("- %s: [%s]", strings.TrimSpace(a.Text()), abs))
	})
	if len(links) == 0 {
		return ""
	}
	return "\n\nAttachments:\n" + strings.Join(links, "\n")
}
