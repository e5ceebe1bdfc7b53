// Package index implements the Package Database (spec.md §4.5): an HTTP
// client for a PEP 503/691 "simple" repository that resolves a project name
// to its available artifacts, with in-process caching and fetch
// deduplication.
//
// HTML index parsing is grounded on datawire-ocibuild's
// pkg/python/pep503.Client (visitHTML / Link extraction via
// golang.org/x/net/html, and hash-verification-from-URL-fragment). PEP 691's
// JSON variant, content negotiation, per-project caching and concurrent
// fetch dedup via golang.org/x/sync/singleflight, and the on-disk cache
// directory (github.com/adrg/xdg) are this package's own additions wiring
// the rest of the example pack's stack into the simple-index client.
package index

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/tdejager/rip/internal/lru"
	"github.com/tdejager/rip/internal/pep440"
	"github.com/tdejager/rip/internal/pypiname"
)

const jsonAcceptHeader = "application/vnd.pypi.simple.v1+json, application/vnd.pypi.simple.v1+html;q=0.2, text/html;q=0.01"

// File is a single artifact entry in a project's simple-index listing.
type File struct {
	Filename       string
	URL            string
	Hashes         map[string]string
	RequiresPython string
	Yanked         bool
	YankedReason   string

	// HasMetadataHash and MetadataHashes describe a PEP 658 metadata side
	// channel at URL+".metadata", when the index advertises one.
	HasMetadataHash bool
	MetadataHashes  map[string]string
}

// Project is the decoded contents of a project's simple-index page.
type Project struct {
	Name  string
	Files []File
}

// Client fetches and caches simple-index project listings.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string

	cache *lru.Cache[string, Project]
	group singleflight.Group
}

// DefaultIndexURL is the public PyPI simple index.
const DefaultIndexURL = "https://pypi.org/simple/"

// NewClient constructs a Client. baseURL is normalized to end with a slash,
// per spec.md §6's --index-url handling. cacheSize bounds the number of
// distinct project listings held in memory.
func NewClient(baseURL string, cacheSize int) *Client {
	if baseURL == "" {
		baseURL = DefaultIndexURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		UserAgent:  "rip (https://github.com/tdejager/rip)",
		cache:      lru.New[string, Project](cacheSize),
	}
}

// CacheDir returns the platform cache directory this client's on-disk cache
// (when enabled by a caller) should live under, namespaced per spec.md §6's
// "rip/pypi" cache key.
func CacheDir() (string, error) {
	return xdg.CacheFile("rip/pypi")
}

// Fetch returns the project listing for name, normalized per PEP 503.
// Concurrent calls for the same name share one in-flight HTTP request.
func (c *Client) Fetch(ctx context.Context, name string) (Project, error) {
	key := pypiname.Normalize(name)
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := c.fetch(ctx, key)
		if err != nil {
			return Project{}, err
		}
		c.cache.Add(key, p)
		return p, nil
	})
	if err != nil {
		return Project{}, err
	}
	return v.(Project), nil
}

func (c *Client) fetch(ctx context.Context, normalizedName string) (Project, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return Project{}, fmt.Errorf("index: invalid base URL %q: %w", c.BaseURL, err)
	}
	u.Path = path.Join(u.Path, normalizedName) + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Project{}, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", jsonAcceptHeader)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Project{}, fmt.Errorf("index: GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// No such project: an empty listing, not an error, per spec.md §7.
		return Project{Name: normalizedName}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Project{}, fmt.Errorf("index: GET %s: unexpected status %s", u, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Project{}, fmt.Errorf("index: reading %s: %w", u, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") {
		return parseJSONIndex(normalizedName, body)
	}
	return parseHTMLIndex(normalizedName, resp.Request.URL, body)
}

type jsonIndex struct {
	Name  string        `json:"name"`
	Files []jsonFileDef `json:"files"`
}

type jsonFileDef struct {
	Filename         string            `json:"filename"`
	URL              string            `json:"url"`
	Hashes           map[string]string `json:"hashes"`
	RequiresPython   string            `json:"requires-python"`
	Yanked           any               `json:"yanked"` // bool or string reason
	CoreMetadata     any               `json:"core-metadata"`
	DistInfoMetadata any               `json:"dist-info-metadata"`
}

func parseJSONIndex(name string, body []byte) (Project, error) {
	var doc jsonIndex
	if err := json.Unmarshal(body, &doc); err != nil {
		return Project{}, fmt.Errorf("index: %s: malformed PEP 691 JSON: %w", name, err)
	}
	p := Project{Name: name}
	for _, f := range doc.Files {
		file := File{
			Filename:       f.Filename,
			URL:            f.URL,
			Hashes:         f.Hashes,
			RequiresPython: f.RequiresPython,
		}
		file.Yanked, file.YankedReason = decodeYanked(f.Yanked)
		hashes, present := decodeMetadataIndicator(f.CoreMetadata)
		if !present {
			hashes, present = decodeMetadataIndicator(f.DistInfoMetadata)
		}
		file.HasMetadataHash = present
		file.MetadataHashes = hashes
		p.Files = append(p.Files, file)
	}
	return p, nil
}

func decodeYanked(v any) (bool, string) {
	switch t := v.(type) {
	case bool:
		return t, ""
	case string:
		return true, t
	default:
		return false, ""
	}
}

func decodeMetadataIndicator(v any) (map[string]string, bool) {
	switch t := v.(type) {
	case bool:
		return nil, t
	case map[string]any:
		hashes := make(map[string]string, len(t))
		for k, val := range t {
			if s, ok := val.(string); ok {
				hashes[k] = s
			}
		}
		return hashes, true
	default:
		return nil, false
	}
}

func parseHTMLIndex(name string, base *url.URL, body []byte) (Project, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Project{}, fmt.Errorf("index: %s: malformed HTML: %w", name, err)
	}

	p := Project{Name: name}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			file, ok := linkToFile(base, n)
			if ok {
				p.Files = append(p.Files, file)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return p, nil
}

func linkToFile(base *url.URL, n *html.Node) (File, bool) {
	var href string
	attrs := map[string]string{}
	for _, a := range n.Attr {
		if a.Key == "href" {
			href = a.Val
		} else if strings.HasPrefix(a.Key, "data-") {
			attrs[a.Key] = a.Val
		}
	}
	if href == "" {
		return File{}, false
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return File{}, false
	}

	var text strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	file := File{
		Filename:       strings.TrimSpace(text.String()),
		URL:            resolved.String(),
		RequiresPython: attrs["data-requires-python"],
		Hashes:         hashesFromFragment(resolved.Fragment),
	}
	if v, ok := attrs["data-yanked"]; ok {
		file.Yanked = true
		file.YankedReason = v
	}
	if _, ok := attrs["data-dist-info-metadata"]; ok {
		file.HasMetadataHash = true
		file.MetadataHashes = hashesFromFragment(attrs["data-dist-info-metadata"])
	}
	if _, ok := attrs["data-core-metadata"]; ok {
		file.HasMetadataHash = true
		file.MetadataHashes = hashesFromFragment(attrs["data-core-metadata"])
	}
	return file, true
}

// hashesFromFragment decodes the "#sha256=..." convention the HTML simple
// index uses to attach a hash to a link.
func hashesFromFragment(fragment string) map[string]string {
	if fragment == "" || fragment == "true" || fragment == "false" {
		return nil
	}
	parts := strings.SplitN(fragment, "=", 2)
	if len(parts) != 2 {
		return nil
	}
	return map[string]string{parts[0]: parts[1]}
}

// VerifyHash checks content's SHA-256 digest against the value recorded for
// algorithm "sha256" in hashes. Per spec.md §7, a mismatch is always fatal.
func VerifyHash(content []byte, hashes map[string]string) error {
	want, ok := hashes["sha256"]
	if !ok {
		return nil
	}
	sum := sha256.Sum256(content)
	got := hex.EncodeToString(sum[:])
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("index: hash mismatch: got sha256:%s, want sha256:%s", got, want)
	}
	return nil
}

// SortedVersions returns the keys of versions (version text mapped to its
// parsed form) in descending PEP 440 order, the ordering
// available_artifacts promises callers per spec.md §4.5.
func SortedVersions(versions map[string]pep440.Version) []string {
	keys := make([]string, 0, len(versions))
	for k := range versions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return pep440.Compare(versions[keys[i]], versions[keys[j]]) > 0
	})
	return keys
}
