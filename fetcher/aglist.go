package fetcher

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shiro46mt/jp-medicine-master/crossref"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/normalize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var _ interfaces.AGListFetcher = (*AGPage)(nil)

var (
	updatedPattern = regexp.MustCompile(`(\d+)年(\d+)月(\d+)日`)
	makerSplit     = regexp.MustCompile(`[()]`)
)

// AGPage scrapes the authorized-generic index page of the Nikkei Medical drug dictionary.
type AGPage struct {
	client *http.Client
	url    string
}

// NewAGPage creates a scraper for the page at url.
func NewAGPage(url string, timeout time.Duration) *AGPage {
	return &AGPage{client: &http.Client{Timeout: timeout}, url: url}
}

func (p *AGPage) FetchAGList() (*crossref.AGList, error) {
	body, err := httpGet(p.client, p.url)
	if err != nil {
		return nil, err
	}
	body, err = toUTF8(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p.url, err)
	}
	return ParseAGList(bytes.NewReader(body))
}

// ParseAGList extracts the publication date and the original/AG pairs from the index page.
func ParseAGList(r io.Reader) (*crossref.AGList, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AG page: %w", err)
	}

	header := findByID(doc, "drugindex-header")
	if header == nil {
		return nil, fmt.Errorf("AG page has no #drugindex-header")
	}
	var stamp *html.Node
	for c := header.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.P {
			stamp = c
			break
		}
	}
	if stamp == nil {
		return nil, fmt.Errorf("AG page header has no update date")
	}
	updated, err := parseJapaneseDate(textOf(stamp))
	if err != nil {
		return nil, err
	}

	article := findByID(doc, "article02")
	if article == nil {
		return nil, fmt.Errorf("AG page has no #article02")
	}

	list := &crossref.AGList{Updated: updated}
	skipped := 0

	for _, li := range findAll(article, atom.Li) {
		divs := findAll(li, atom.Div)
		if len(divs) < 3 {
			skipped++
			continue
		}
		links := findAll(divs[1], atom.A)
		if len(links) == 0 {
			skipped++
			continue
		}

		parts := makerSplit.Split(normalize.Name(textOf(divs[0])), -1)
		pair := crossref.AGPair{
			OriginalName: parts[0],
			AGCode:       codeFromHref(attr(links[0], "href")),
			AGName:       normalize.Name(textOf(divs[1])),
			AGMaker:      normalize.Name(textOf(divs[2])),
		}
		if len(parts) > 1 {
			pair.OriginalMaker = parts[1]
		}
		list.Pairs = append(list.Pairs, pair)
	}

	if skipped > 0 {
		logging.Info("AG page skip statistics", "malformed_items", skipped, "pairs_parsed", len(list.Pairs))
	}
	return list, nil
}

func parseJapaneseDate(s string) (string, error) {
	m := updatedPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("no date found in %q", s)
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%04d%02d%02d", y, mo, d), nil
}

// codeFromHref returns the first 12 characters of the last path segment: the YJ code.
func codeFromHref(href string) string {
	seg := href[strings.LastIndex(href, "/")+1:]
	if len(seg) > 12 {
		seg = seg[:12]
	}
	return seg
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns the descendants of n with tag a, in document order.
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
