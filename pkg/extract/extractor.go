package extract

import (
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"records-scraper/pkg/models"
	"records-scraper/pkg/parse"
	"records-scraper/pkg/utils"
)

// PageContext carries the listing-page identity the extractor cannot derive
// from markup alone: the year the page enumerates and its URL for resolving
// relative hrefs.
type PageContext struct {
	Year    int
	BaseURL *url.URL
}

// LinkExtractor parses listing-page markup into DocumentLink tuples.
// Listing pages group documents as a category heading followed by a table
// of rows, each row holding the document title and an anchor to the file.
type LinkExtractor struct {
	headingSelector string
	extensions      map[string]bool // lowercased, with leading dot
	log             *logrus.Entry
}

// NewLinkExtractor creates an extractor recognizing links whose URL path ends
// in one of the given extensions (e.g. ".pdf").
func NewLinkExtractor(headingSelector string, extensions []string, log *logrus.Entry) *LinkExtractor {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &LinkExtractor{
		headingSelector: headingSelector,
		extensions:      exts,
		log:             log,
	}
}

// Extract parses markup and returns the document links found, plus the count
// of matching anchors that had to be dropped because no category could be
// derived for them. Malformed or empty markup yields an empty result, not an
// error; only an unreadable reader fails.
func (e *LinkExtractor) Extract(markup io.Reader, pageCtx PageContext) (links []models.DocumentLink, dropped int, err error) {
	doc, err := goquery.NewDocumentFromReader(markup)
	if err != nil {
		return nil, 0, err
	}

	pageLog := e.log.WithField("year", pageCtx.Year)
	seen := make(map[string]bool) // normalized URL -> already extracted on this page

	doc.Find(e.headingSelector).Each(func(_ int, heading *goquery.Selection) {
		category := utils.FormatCategoryName(heading.Text())
		if category == "" || category == "untitled" {
			return
		}

		// The document table is the next table sibling after the heading
		table := heading.NextAllFiltered("table").First()
		if table.Length() == 0 {
			return
		}

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			anchor := row.Find("a[href]").First()
			if anchor.Length() == 0 {
				return // Header or spacer row
			}
			href, _ := anchor.Attr("href")
			docURL := e.documentURL(pageCtx.BaseURL, href)
			if docURL == "" {
				return // Not a document link
			}
			key := e.normalize(docURL)
			if seen[key] {
				return
			}

			filename := e.suggestFilename(row, anchor, docURL)
			seen[key] = true
			links = append(links, models.DocumentLink{
				Year:     pageCtx.Year,
				Category: category,
				URL:      docURL,
				Filename: filename,
			})
		})
	})

	// Document anchors outside any heading/table group have no derivable
	// category: drop them, but account for every one.
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		docURL := e.documentURL(pageCtx.BaseURL, href)
		if docURL == "" || seen[e.normalize(docURL)] {
			return
		}
		seen[e.normalize(docURL)] = true
		dropped++
		pageLog.WithField("url", docURL).Warn("Dropping document link with no derivable category")
	})

	if len(links) == 0 {
		pageLog.Info("No document links found on listing page")
	}
	return links, dropped, nil
}

// documentURL resolves href against the page URL and returns it only when
// the target path ends in a recognized document extension.
func (e *LinkExtractor) documentURL(base *url.URL, href string) string {
	resolved := parse.ResolveRef(base, href)
	if resolved == "" {
		return ""
	}
	parsed, err := url.Parse(resolved)
	if err != nil {
		return ""
	}
	if !e.extensions[strings.ToLower(path.Ext(parsed.Path))] {
		return ""
	}
	return resolved
}

// suggestFilename derives a filename from the row's title cell, falling back
// to the anchor text and finally the URL basename. The document extension
// from the URL is always preserved.
func (e *LinkExtractor) suggestFilename(row, anchor *goquery.Selection, docURL string) string {
	ext := ".pdf"
	if parsed, err := url.Parse(docURL); err == nil {
		if urlExt := strings.ToLower(path.Ext(parsed.Path)); urlExt != "" {
			ext = urlExt
		}
	}

	// Title lives in the second cell of the row (first is the serial number)
	name := ""
	cells := row.Find("td")
	if cells.Length() >= 2 {
		name = strings.TrimSpace(cells.Eq(1).Text())
	}
	if name == "" {
		name = strings.TrimSpace(anchor.Text())
	}
	if name != "" {
		if cleaned := utils.CleanDocumentName(name); cleaned != "untitled" {
			return cleaned + ext
		}
	}

	// Last resort: the URL's own basename, sanitized
	if parsed, err := url.Parse(docURL); err == nil {
		base := path.Base(parsed.Path)
		base = strings.TrimSuffix(base, path.Ext(base))
		return utils.SanitizeFilename(base) + ext
	}
	return "untitled" + ext
}

func (e *LinkExtractor) normalize(rawURL string) string {
	if normalized, _, err := parse.ParseAndNormalize(rawURL); err == nil {
		return normalized
	}
	return rawURL
}
