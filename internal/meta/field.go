package meta

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field is one piece of page metadata.
//
// Primary matches the canonical markup of the tag exactly (attribute order,
// quoting) and is cheap. Fallback walks the parsed DOM and tolerates any
// attribute order, casing or quoting. Fallback only runs when Primary found
// nothing.
type Field struct {
	Name     string
	Primary  *regexp.Regexp
	Fallback func(doc *goquery.Document) string
}

// source is a page being extracted; the DOM is built on first use.
type source struct {
	html   string
	doc    *goquery.Document
	parsed bool
}

func (s *source) document() *goquery.Document {
	if !s.parsed {
		s.parsed = true
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
		if err == nil {
			s.doc = doc
		}
	}
	return s.doc
}

// lookup returns the first non-empty value found by Primary then Fallback.
func (f Field) lookup(s *source) string {
	if f.Primary != nil {
		if m := f.Primary.FindStringSubmatch(s.html); m != nil {
			for _, g := range m[1:] {
				if v := strings.TrimSpace(g); v != "" {
					return v
				}
			}
		}
	}
	if f.Fallback != nil {
		if doc := s.document(); doc != nil {
			return strings.TrimSpace(f.Fallback(doc))
		}
	}
	return ""
}

// MetaTag is the Field for <meta property|name="key" content="...">.
func MetaTag(key string) Field {
	return Field{
		Name: key,
		Primary: regexp.MustCompile(`(?is)<meta\s+(?:property|name|itemprop)\s*=\s*["']` +
			regexp.QuoteMeta(key) + `["']\s+content\s*=\s*(?:"([^"]*)"|'([^']*)')`),
		Fallback: func(doc *goquery.Document) string {
			return findMeta(doc, key)
		},
	}
}

func findMeta(doc *goquery.Document, key string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, attr := range []string{"property", "name", "itemprop"} {
			if v, ok := sel.Attr(attr); ok && strings.EqualFold(strings.TrimSpace(v), key) {
				if c, ok := sel.Attr("content"); ok && strings.TrimSpace(c) != "" {
					out = c
					return false
				}
			}
		}
		return true
	})
	return out
}

var (
	titleField = Field{
		Name:    "title",
		Primary: regexp.MustCompile(`(?is)<title[^>]*>([^<]*)</title>`),
		Fallback: func(doc *goquery.Document) string {
			return doc.Find("title").First().Text()
		},
	}

	faviconField = Field{
		Name:    "favicon",
		Primary: regexp.MustCompile(`(?is)<link\s+rel\s*=\s*["'](?:shortcut\s+)?icon["']\s+href\s*=\s*["']([^"']+)["']`),
		Fallback: func(doc *goquery.Document) string {
			var href string
			doc.Find("link[rel][href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				for _, rel := range strings.Fields(strings.ToLower(sel.AttrOr("rel", ""))) {
					if rel == "icon" || rel == "apple-touch-icon" {
						href = sel.AttrOr("href", "")
						return false
					}
				}
				return true
			})
			return href
		},
	}

	iframeField = Field{
		Name:    "iframe",
		Primary: regexp.MustCompile(`(?is)<iframe\s+src\s*=\s*["']([^"']+)["']`),
		Fallback: func(doc *goquery.Document) string {
			return doc.Find("iframe[src]").First().AttrOr("src", "")
		},
	}

	embedURLField = Field{
		Name:    "embedUrl",
		Primary: regexp.MustCompile(`"embedUrl"\s*:\s*"([^"]+)"`),
		Fallback: func(doc *goquery.Document) string {
			for _, key := range []string{"embed_url", "embedUrl", "embedURL"} {
				if v := findMeta(doc, key); v != "" {
					return v
				}
			}
			return doc.Find(`link[itemprop="embedUrl"]`).First().AttrOr("href", "")
		},
	}
)
