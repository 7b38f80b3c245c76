// Package meta extracts preview metadata (Open Graph, Twitter cards,
// HTML fallbacks) from raw HTML.
package meta

import (
	"net/url"
	"strings"

	"github.com/AlienServices/unfurl/internal/domain"
)

const (
	MaxTitleRunes       = 300
	MaxDescriptionRunes = 1000
)

// Meta is what a page says about itself. Text fields are cleaned and
// URL fields are absolute when a base URL was given.
type Meta struct {
	Title               string
	Description         string
	Image               string
	Favicon             string
	SiteName            string
	Author              string
	PublishedTime       string
	VideoURL            string
	VideoType           string
	TwitterPlayer       string
	TwitterPlayerStream string
	Iframe              string
	EmbedURL            string
}

// VideoSignals returns the metadata-based video hints.
func (m Meta) VideoSignals() domain.VideoSignals {
	return domain.VideoSignals{
		OGVideo:             m.VideoURL,
		OGVideoType:         m.VideoType,
		TwitterPlayer:       m.TwitterPlayer,
		TwitterPlayerStream: m.TwitterPlayerStream,
	}
}

// Empty reports whether nothing usable for a preview was found.
func (m Meta) Empty() bool {
	return m.Title == "" && m.Description == "" && m.Image == ""
}

var (
	titleChain       = []Field{MetaTag("og:title"), MetaTag("twitter:title"), titleField}
	descriptionChain = []Field{MetaTag("og:description"), MetaTag("description"), MetaTag("twitter:description")}
	imageChain       = []Field{MetaTag("og:image"), MetaTag("og:image:url"), MetaTag("og:image:secure_url"), MetaTag("twitter:image"), MetaTag("twitter:image:src")}
	siteChain        = []Field{MetaTag("og:site_name"), MetaTag("application-name")}
	authorChain      = []Field{MetaTag("author"), MetaTag("article:author"), MetaTag("twitter:creator")}
	publishedChain   = []Field{MetaTag("article:published_time"), MetaTag("og:published_time"), MetaTag("datePublished"), MetaTag("uploadDate")}
	videoChain       = []Field{MetaTag("og:video"), MetaTag("og:video:url"), MetaTag("og:video:secure_url")}
	videoTypeChain   = []Field{MetaTag("og:video:type")}
	playerChain      = []Field{MetaTag("twitter:player")}
	streamChain      = []Field{MetaTag("twitter:player:stream")}
)

func first(s *source, chain []Field) string {
	for _, f := range chain {
		if v := f.lookup(s); v != "" {
			return v
		}
	}
	return ""
}

// Extract pulls metadata out of page. base, when non-nil, is the final page
// URL used to resolve relative links and the default /favicon.ico.
func Extract(page string, base *url.URL) Meta {
	s := &source{html: page}

	m := Meta{
		Title:               Clean(first(s, titleChain), MaxTitleRunes),
		Description:         Clean(first(s, descriptionChain), MaxDescriptionRunes),
		SiteName:            Clean(first(s, siteChain), MaxTitleRunes),
		Author:              Clean(first(s, authorChain), MaxTitleRunes),
		PublishedTime:       Clean(first(s, publishedChain), 64),
		Image:               Resolve(base, first(s, imageChain)),
		Favicon:             Resolve(base, faviconField.lookup(s)),
		VideoURL:            Resolve(base, first(s, videoChain)),
		VideoType:           strings.ToLower(first(s, videoTypeChain)),
		TwitterPlayer:       Resolve(base, first(s, playerChain)),
		TwitterPlayerStream: Resolve(base, first(s, streamChain)),
		Iframe:              Resolve(base, iframeField.lookup(s)),
		EmbedURL:            Resolve(base, unescapeJSON(embedURLField.lookup(s))),
	}
	if m.Favicon == "" && base != nil {
		m.Favicon = Resolve(base, "/favicon.ico")
	}
	return m
}

// Resolve makes ref absolute against base. Only http(s) results are kept.
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(unescapeEntities(ref))
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// unescapeJSON undoes the escaping of "/" found in JSON-LD strings.
func unescapeJSON(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}
