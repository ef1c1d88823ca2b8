// Package fetcher retrieves the data catalog, raw dataset files and the authorized-generic
// listing over HTTP.
package fetcher

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"golang.org/x/text/encoding/japanese"
)

var (
	_ interfaces.CatalogFetcher  = (*Repository)(nil)
	_ interfaces.RawTableFetcher = (*Repository)(nil)
)

// maxBody bounds a single download. A larger response is an error, never a truncated file.
var maxBody int64 = 512 << 20

// Repository reads the published data repository: a JSON catalog plus one CSV per file.
type Repository struct {
	client     *http.Client
	catalogURL string
	dataURL    string // template with {kind} and {file} placeholders
	cache      *Cache
}

// NewRepository creates a repository client. dataURL must contain the {kind} and {file}
// placeholders. cache may be nil.
func NewRepository(catalogURL, dataURL string, timeout time.Duration, cache *Cache) *Repository {
	return &Repository{
		client:     &http.Client{Timeout: timeout},
		catalogURL: catalogURL,
		dataURL:    dataURL,
		cache:      cache,
	}
}

// FileURL returns the download URL of one catalog file.
func (r *Repository) FileURL(kind catalog.Kind, identifier string) string {
	return strings.NewReplacer("{kind}", string(kind), "{file}", identifier).Replace(r.dataURL)
}

func (r *Repository) FetchCatalog() (*catalog.Catalog, error) {
	body, err := r.get(r.catalogURL)
	if err != nil {
		return nil, err
	}
	c, err := catalog.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	logging.Info("Data catalog fetched", "updated", c.Updated, "files", c.Count())
	return c, nil
}

func (r *Repository) FetchRawTable(kind catalog.Kind, entry catalog.FileEntry) ([][]string, error) {
	content, ok := r.cache.Get(kind, entry.Path)
	if !ok {
		url := r.FileURL(kind, entry.Path)
		body, err := r.get(url)
		if err != nil {
			return nil, err
		}
		content, err = toUTF8(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", url, err)
		}
		logging.Debug("Raw file downloaded", "kind", kind, "file", entry.Path, "size", humanize.Bytes(uint64(len(body))))

		if err := r.cache.Put(kind, entry.Path, content); err != nil {
			logging.Warn("Failed to cache raw file", "kind", kind, "file", entry.Path, "error", err)
		}
	}

	return ParseCSV(bytes.NewReader(content))
}

func (r *Repository) get(url string) ([]byte, error) {
	return httpGet(r.client, url)
}

func httpGet(client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "jp-medicine-master")

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %s", url, response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > maxBody {
		return nil, fmt.Errorf("failed to download %s: response larger than %s", url, humanize.IBytes(uint64(maxBody)))
	}
	return body, nil
}

// toUTF8 returns body unchanged when it is valid UTF-8 and decodes it from Shift_JIS otherwise.
func toUTF8(body []byte) ([]byte, error) {
	if utf8.Valid(body) {
		return body, nil
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(body)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseCSV reads every record of a published CSV file. Records may have differing lengths.
func ParseCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}
