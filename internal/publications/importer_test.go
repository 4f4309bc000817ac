package publications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samrogers05/genesis/internal/models"
)

type stubStore struct {
	insertFn func(ctx context.Context, pub models.Publication) (models.Publication, bool, error)
	got      []models.Publication
}

func (s *stubStore) InsertPublication(ctx context.Context, pub models.Publication) (models.Publication, bool, error) {
	s.got = append(s.got, pub)
	if s.insertFn != nil {
		return s.insertFn(ctx, pub)
	}
	pub.ID = "id-" + pub.Title
	return pub, true, nil
}

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>arXiv author feed</title>
  <entry>
    <title>Organoid   memory
      formation</title>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <link href="https://doi.org/10.1234/organoid.5678"/>
    <published>2024-01-05T00:00:00Z</published>
    <summary>Cultured neural tissue learns.</summary>
  </entry>
  <entry>
    <title>Quantum error correction</title>
    <id>http://arxiv.org/abs/2312.00002v2</id>
    <updated>2023-12-20T00:00:00Z</updated>
    <summary>99.9% fidelity.</summary>
  </entry>
  <entry>
    <title>   </title>
    <id>http://arxiv.org/abs/0000</id>
  </entry>
</feed>`

func TestImportMapsEntries(t *testing.T) {
	store := &stubStore{}
	res, err := NewImporter(store, nil).Import(context.Background(), "alice", strings.NewReader(atomFeed))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if res.Imported != 2 || res.Skipped != 1 {
		t.Fatalf("imported %d skipped %d, want 2 and 1", res.Imported, res.Skipped)
	}
	first := store.got[0]
	if first.Title != "Organoid memory formation" {
		t.Errorf("title = %q", first.Title)
	}
	if first.DOI != "10.1234/organoid.5678" {
		t.Errorf("doi = %q", first.DOI)
	}
	if first.Year != 2024 || first.Journal != "arXiv author feed" || first.ProfileID != "alice" {
		t.Errorf("unexpected publication %+v", first)
	}
	if store.got[1].Year != 2023 || store.got[1].DOI != "" {
		t.Errorf("unexpected publication %+v", store.got[1])
	}
}

func TestImportCountsDuplicatesAsSkipped(t *testing.T) {
	store := &stubStore{insertFn: func(_ context.Context, pub models.Publication) (models.Publication, bool, error) {
		return pub, false, nil
	}}
	res, err := NewImporter(store, nil).Import(context.Background(), "alice", strings.NewReader(atomFeed))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 3 || len(res.Publications) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestImportStopsOnStoreError(t *testing.T) {
	store := &stubStore{insertFn: func(_ context.Context, pub models.Publication) (models.Publication, bool, error) {
		return models.Publication{}, false, errors.New("db down")
	}}
	if _, err := NewImporter(store, nil).Import(context.Background(), "alice", strings.NewReader(atomFeed)); err == nil {
		t.Fatal("expected error")
	}
	if len(store.got) != 1 {
		t.Fatalf("store called %d times, want 1", len(store.got))
	}
}

func TestImportURLValidatesScheme(t *testing.T) {
	imp := NewImporter(&stubStore{}, nil)
	for _, raw := range []string{"", "ftp://example.com/feed", "/relative/feed.xml"} {
		if _, err := imp.ImportURL(context.Background(), "alice", raw); !errors.Is(err, ErrInvalidFeedURL) {
			t.Errorf("%q: err = %v, want ErrInvalidFeedURL", raw, err)
		}
	}
}
