package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"UndercoverFM/logger"
	"UndercoverFM/model"
)

// ErrCatalogUnavailable wraps every fetch or parse failure of the manifest.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// ObjectReader reads a whole object from the bucket.
type ObjectReader interface {
	ReadObject(ctx context.Context, key string) ([]byte, error)
}

// Fetcher retrieves the raw manifest document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// FileFetcher reads the manifest from the local filesystem.
type FileFetcher struct {
	Path string
}

func (f FileFetcher) Fetch(context.Context) ([]byte, error) {
	return os.ReadFile(f.Path)
}

func (f FileFetcher) String() string { return f.Path }

// HTTPFetcher GETs the manifest from a URL.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest request failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (f HTTPFetcher) String() string { return f.URL }

// ObjectFetcher reads the manifest from the object store.
type ObjectFetcher struct {
	Store ObjectReader
	Key   string
}

func (f ObjectFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if f.Store == nil {
		return nil, errors.New("object store not configured")
	}
	return f.Store.ReadObject(ctx, f.Key)
}

func (f ObjectFetcher) String() string { return "minio://" + f.Key }

// NewFetcher picks a fetcher from a source string: http(s) URLs, minio://key
// objects, anything else is a file path.
func NewFetcher(source string, objects ObjectReader) Fetcher {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return HTTPFetcher{URL: source}
	case strings.HasPrefix(source, "minio://"):
		return ObjectFetcher{Store: objects, Key: strings.TrimPrefix(source, "minio://")}
	default:
		return FileFetcher{Path: source}
	}
}

// Parse decodes a manifest document.
func Parse(data []byte) (*model.Manifest, error) {
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", ErrCatalogUnavailable, err)
	}
	return &m, nil
}

// Load fetches, parses and builds the catalog. Any failure is wrapped in
// ErrCatalogUnavailable; callers keep an empty catalog in that case.
func Load(ctx context.Context, f Fetcher, baseURLOverride string) (*Catalog, error) {
	data, err := f.Fetch(ctx)
	if err != nil {
		logger.Warn("读取歌单清单失败", logger.String("source", f.String()), logger.ErrorField(err))
		return Empty(), fmt.Errorf("%w: fetch %s: %v", ErrCatalogUnavailable, f.String(), err)
	}

	m, err := Parse(data)
	if err != nil {
		logger.Warn("解析歌单清单失败", logger.String("source", f.String()), logger.ErrorField(err))
		return Empty(), err
	}
	if baseURLOverride != "" {
		m.BaseURL = baseURLOverride
	}

	c := Build(m)
	logger.Info("歌单清单加载完成",
		logger.String("source", f.String()),
		logger.Int("artists", len(c.Artists)),
		logger.Int("albums", len(c.Albums)),
		logger.Int("songs", len(c.Songs)))
	return c, nil
}
