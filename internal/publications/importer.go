// Package publications imports a researcher's papers from an RSS, Atom or JSON feed.
package publications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/samrogers05/genesis/internal/models"
)

var (
	ErrInvalidFeedURL = errors.New("feed url must be an absolute http(s) url")

	// ErrFeedUnavailable means the feed could not be fetched or parsed.
	ErrFeedUnavailable = errors.New("feed unavailable")
)

// Store persists publications, skipping ones the profile already has.
type Store interface {
	InsertPublication(ctx context.Context, pub models.Publication) (models.Publication, bool, error)
}

// Result summarises one import.
type Result struct {
	Feed         string               `json:"feed"`
	Imported     int                  `json:"imported"`
	Skipped      int                  `json:"skipped"`
	Publications []models.Publication `json:"publications"`
}

type Importer struct {
	store  Store
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewImporter(store Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, parser: gofeed.NewParser(), logger: logger}
}

// ImportURL fetches feedURL and stores its entries as publications of profileID.
func (i *Importer) ImportURL(ctx context.Context, profileID, feedURL string) (Result, error) {
	u, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Result{}, ErrInvalidFeedURL
	}

	parsed, err := i.parser.ParseURLWithContext(u.String(), ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, u, err)
	}
	return i.storeFeed(ctx, profileID, parsed)
}

// Import reads a feed document from r.
func (i *Importer) Import(ctx context.Context, profileID string, r io.Reader) (Result, error) {
	parsed, err := i.parser.Parse(r)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	return i.storeFeed(ctx, profileID, parsed)
}

func (i *Importer) storeFeed(ctx context.Context, profileID string, parsed *gofeed.Feed) (Result, error) {
	res := Result{Feed: parsed.Title, Publications: []models.Publication{}}
	for _, item := range parsed.Items {
		pub, ok := fromItem(profileID, parsed.Title, item)
		if !ok {
			res.Skipped++
			continue
		}
		stored, inserted, err := i.store.InsertPublication(ctx, pub)
		if err != nil {
			return res, fmt.Errorf("store publication %q: %w", pub.Title, err)
		}
		if !inserted {
			res.Skipped++
			continue
		}
		res.Imported++
		res.Publications = append(res.Publications, stored)
	}

	i.logger.InfoContext(ctx, "imported publications", "feed", parsed.Title, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

var doiPattern = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"<>]+`)

func fromItem(profileID, journal string, item *gofeed.Item) (models.Publication, bool) {
	title := collapse(item.Title)
	if title == "" {
		return models.Publication{}, false
	}

	pub := models.Publication{
		ProfileID: profileID,
		Title:     title,
		Abstract:  collapse(firstNonEmpty(item.Description, item.Content)),
		Journal:   collapse(journal),
		DOI:       findDOI(item),
	}
	switch {
	case item.PublishedParsed != nil:
		pub.Year = item.PublishedParsed.Year()
	case item.UpdatedParsed != nil:
		pub.Year = item.UpdatedParsed.Year()
	}
	return pub, true
}

func findDOI(item *gofeed.Item) string {
	candidates := []string{item.Link, item.GUID}
	if dc := item.DublinCoreExt; dc != nil {
		candidates = append(candidates, dc.Identifier...)
	}
	for _, c := range candidates {
		if m := doiPattern.FindString(c); m != "" {
			return strings.TrimRight(m, ".,;")
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
