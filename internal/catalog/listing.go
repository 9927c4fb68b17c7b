package catalog

import (
	"errors"
	"net/url"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/net/html"

	"github.com/Totto16/msys2-install-packages-pinned/internal/pkgver"
)

// ErrMalformedDocument is returned when the listing document has no
// preformatted block to read rows from, which means the repository changed
// its listing format.
var ErrMalformedDocument = zerr.New("malformed catalog document")

// Skip reasons for listing rows that are valid but not installable artifacts.
const (
	SkipSig       = "sig package"
	SkipDatabase  = ".db file"
	SkipOld       = ".old file"
	SkipDirectory = "directory file"
)

// Entry is one usable row of the repository listing: a versioned artifact
// and the absolute URL it downloads from.
type Entry struct {
	RawName string // still percent-encoded, as published
	Name    string // decoded display name
	Package string
	Version pkgver.Version
	Target  string
	Ext     string
	URL     string
}

// SkippedEntry records a row that was recognized and deliberately ignored.
type SkippedEntry struct {
	Name   string
	Reason string
}

// Listing is the parsed repository catalog. Skipped and Failed are
// diagnostics only; individual rows never abort parsing.
type Listing struct {
	Entries []Entry
	Skipped []SkippedEntry
	Failed  []string
}

// Parse reads an HTML directory-listing document into a Listing. Rows are
// the hyperlinks of the document's first preformatted block; a document
// without one fails with ErrMalformedDocument. baseURL must be the listing
// URL the hrefs are relative to.
func Parse(doc, baseURL string) (Listing, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return Listing{}, errors.Join(ErrMalformedDocument, err)
	}

	pre := findElement(root, "pre")
	if pre == nil {
		return Listing{}, zerr.With(zerr.Wrap(ErrMalformedDocument, "no <pre> listing block in document"), "missing", "<pre> listing block")
	}

	var listing Listing
	for _, link := range collectLinks(pre) {
		classifyRow(&listing, link, baseURL)
	}
	return listing, nil
}

// link is one anchor of the listing block, both halves kept raw: the target
// builds the download URL, the text is what gets decoded for matching.
type link struct {
	target string
	text   string
}

func classifyRow(listing *Listing, l link, baseURL string) {
	name := decodeName(l.text)

	switch {
	case strings.HasSuffix(name, ".sig"):
		listing.Skipped = append(listing.Skipped, SkippedEntry{Name: name, Reason: SkipSig})
	case isDatabaseFile(name):
		listing.Skipped = append(listing.Skipped, SkippedEntry{Name: name, Reason: SkipDatabase})
	case strings.HasSuffix(name, ".old"):
		listing.Skipped = append(listing.Skipped, SkippedEntry{Name: name, Reason: SkipOld})
	case name == "../" || name == "..":
		listing.Skipped = append(listing.Skipped, SkippedEntry{Name: name, Reason: SkipDirectory})
	default:
		content, ok := ParseName(name)
		if !ok {
			listing.Failed = append(listing.Failed, l.text)
			return
		}
		listing.Entries = append(listing.Entries, Entry{
			RawName: l.target,
			Name:    name,
			Package: content.Package,
			Version: content.Version,
			Target:  content.Target,
			Ext:     content.Ext,
			// The raw target keeps its percent-escapes; decoding is only
			// for matching and display.
			URL: baseURL + l.target,
		})
	}
}

// isDatabaseFile reports whether name is a repository database artifact
// (anything ending in .db or carrying a .db. infix, e.g. mingw64.db.tar.zst).
func isDatabaseFile(name string) bool {
	return strings.HasSuffix(name, ".db") || strings.Contains(name, ".db.")
}

// decodeName percent-decodes a link text for display and matching. Undecodable
// names are used as-is; they will miss the artifact grammar and be reported.
func decodeName(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectLinks(n *html.Node) []link {
	var links []link
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" {
			l := link{text: nodeText(node)}
			for _, attr := range node.Attr {
				if attr.Key == "href" {
					l.target = attr.Val
					break
				}
			}
			if l.target == "" {
				l.target = l.text
			}
			links = append(links, l)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return links
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
