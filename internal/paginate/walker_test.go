package paginate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/extract"
	"github.com/statstream/papercrawler/internal/ingest"
)

type fakeFetcher struct {
	pages map[string]ingest.Page
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (ingest.Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return ingest.Page{}, err
	}
	page, ok := f.pages[url]
	if !ok {
		return ingest.Page{URL: url, StatusCode: 200, Body: []byte("<html></html>")}, nil
	}
	return page, nil
}

// fakeEngine treats each line of the body as one record title. Lines
// starting with "#" stand in for non-record markup and are skipped.
type fakeEngine struct{}

func (fakeEngine) Extract(_ string, page ingest.Page, _ []ingest.ExtractionStrategy, pageIndex int) (extract.Result, error) {
	var result extract.Result
	body := string(page.Body)
	if body == "" || body == "<html></html>" {
		return result, nil
	}
	for i, title := range splitLines(body) {
		if title[0] == '#' {
			continue
		}
		result.Records = append(result.Records, ingest.RawRecord{
			Title: title, PageIndex: pageIndex, ItemIndex: i,
		})
	}
	return result, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func pagedDesc() ingest.SourceDescriptor {
	return ingest.SourceDescriptor{
		Name:      "jasa",
		BaseURL:   "https://example.org/articles?journalCode=uasa20",
		PageParam: "startPage",
		MaxPages:  10,
		Strategies: []ingest.ExtractionStrategy{
			{Name: "any", Item: "div"},
		},
	}
}

func TestWalker_EmptyPageTerminates(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]ingest.Page{
		"https://example.org/articles?journalCode=uasa20&startPage=0": {Body: []byte("alpha\nbeta")},
		"https://example.org/articles?journalCode=uasa20&startPage=1": {Body: []byte("gamma")},
		// page 2 defaults to the empty page
	}}

	w := NewWalker(fetcher, fakeEngine{}, nil, zap.NewNop())
	result, err := w.Walk(context.Background(), pagedDesc(), "run-1")
	require.NoError(t, err)
	require.Equal(t, 3, result.Pages)
	require.Len(t, result.Records, 3)
	require.Equal(t, "alpha", result.Records[0].Title)
	require.Equal(t, "gamma", result.Records[2].Title)
}

func TestWalker_IdenticalPageTerminates(t *testing.T) {
	t.Parallel()

	repeated := ingest.Page{Body: []byte("same\ncontent")}
	fetcher := &fakeFetcher{pages: map[string]ingest.Page{
		"https://example.org/articles?journalCode=uasa20&startPage=0": repeated,
		"https://example.org/articles?journalCode=uasa20&startPage=1": repeated,
		"https://example.org/articles?journalCode=uasa20&startPage=2": repeated,
	}}

	w := NewWalker(fetcher, fakeEngine{}, nil, zap.NewNop())
	result, err := w.Walk(context.Background(), pagedDesc(), "run-1")
	require.NoError(t, err)
	require.Len(t, result.Records, 2, "the repeated page must not be extracted twice")
	require.Equal(t, 2, result.Pages)
}

func TestWalker_RepeatedItemsTerminate(t *testing.T) {
	t.Parallel()

	// Same two items on every page; the bodies differ only by a rotating
	// token, so the byte-level guard never fires.
	pages := map[string]ingest.Page{}
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("https://example.org/articles?journalCode=uasa20&startPage=%d", i)
		pages[url] = ingest.Page{Body: []byte(fmt.Sprintf("# nonce-%d\nalpha\nbeta", i))}
	}
	fetcher := &fakeFetcher{pages: pages}

	w := NewWalker(fetcher, fakeEngine{}, nil, zap.NewNop())
	result, err := w.Walk(context.Background(), pagedDesc(), "run-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Pages, "walk must stop on the first page repeating the previous items")
	require.Len(t, result.Records, 2)
	require.Equal(t, "alpha", result.Records[0].Title)
	require.Equal(t, "beta", result.Records[1].Title)
}

func TestWalker_BlockedFirstPageSurfaces(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{errs: map[string]error{
		"https://example.org/articles?journalCode=uasa20&startPage=0": &ingest.BlockedError{
			URL: "https://example.org", StatusCode: 403,
		},
	}}

	w := NewWalker(fetcher, fakeEngine{}, nil, zap.NewNop())
	result, err := w.Walk(context.Background(), pagedDesc(), "run-1")
	require.Error(t, err)
	require.True(t, ingest.IsBlocked(err))
	require.Equal(t, 0, result.Pages)
}

func TestWalker_MidWalkFailureKeepsPartial(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]ingest.Page{
			"https://example.org/articles?journalCode=uasa20&startPage=0": {Body: []byte("alpha")},
		},
		errs: map[string]error{
			"https://example.org/articles?journalCode=uasa20&startPage=1": &ingest.FetchError{
				URL: "https://example.org", Err: fmt.Errorf("connection reset"),
			},
		},
	}

	w := NewWalker(fetcher, fakeEngine{}, nil, zap.NewNop())
	result, err := w.Walk(context.Background(), pagedDesc(), "run-1")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, 1, result.Pages)
	require.Len(t, result.Warnings, 1)
}

func TestWalker_SinglePageSource(t *testing.T) {
	t.Parallel()

	desc := ingest.SourceDescriptor{
		Name:    "aos",
		BaseURL: "https://example.org/future-papers",
	}
	fetcher := &fakeFetcher{pages: map[string]ingest.Page{
		"https://example.org/future-papers": {Body: []byte("one\ntwo\nthree")},
	}}

	w := NewWalker(fetcher, fakeEngine{}, nil, zap.NewNop())
	result, err := w.Walk(context.Background(), desc, "run-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Pages)
	require.Len(t, result.Records, 3)
	require.Len(t, fetcher.calls, 1, "single-page sources are fetched exactly once")
}

func TestWalker_RespectsPageCap(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]ingest.Page{}}
	for i := 0; i < 20; i++ {
		url := fmt.Sprintf("https://example.org/articles?journalCode=uasa20&startPage=%d", i)
		fetcher.pages[url] = ingest.Page{Body: []byte(fmt.Sprintf("title-%d", i))}
	}

	desc := pagedDesc()
	desc.MaxPages = 2

	w := NewWalker(fetcher, fakeEngine{}, nil, zap.NewNop())
	result, err := w.Walk(context.Background(), desc, "run-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Pages)
	require.Len(t, result.Records, 2)
}

type fakeArchive struct {
	paths []string
}

func (a *fakeArchive) PutPage(_ context.Context, path string, _ []byte) (string, error) {
	a.paths = append(a.paths, path)
	return "memory://" + path, nil
}

func TestWalker_ArchivesFetchedPages(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]ingest.Page{
		"https://example.org/articles?journalCode=uasa20&startPage=0": {Body: []byte("alpha")},
	}}
	archive := &fakeArchive{}

	w := NewWalker(fetcher, fakeEngine{}, archive, zap.NewNop())
	_, err := w.Walk(context.Background(), pagedDesc(), "run-9")
	require.NoError(t, err)
	require.NotEmpty(t, archive.paths)
	require.Equal(t, "run-9/jasa/page-000.html", archive.paths[0])
}
