// Package feed fetches the upstream RSS document and turns its items into
// cleaned domain.FeedPost values.
//
// Parsing is deliberately pattern-based rather than a full XML decode: the
// upstream feed embeds HTML inside CDATA and occasionally carries markup that
// a strict decoder rejects, and the extraction rules below must hold for those
// documents too.
package feed

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

var (
	itemRe  = regexp.MustCompile(`<item>([\s\S]*?)</item>`)
	tagsRe  = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)

	// Applied in order over the running result, so "&amp;lt;" ends up as "<".
	entitySteps = []struct{ from, to string }{
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", `"`},
		{"&#8217;", "'"},
		{"&#8220;", `"`},
		{"&#8221;", `"`},
		{"&#8211;", "–"},
		{"&#8212;", "—"},
		{"&#8230;", "…"},
	}

	tagReMu sync.Mutex
	plainRe = map[string]*regexp.Regexp{}
	cdataRe = map[string]*regexp.Regexp{}
)

// Parse extracts every <item> of an RSS document. Items without a title or a
// link are dropped. defaultAuthor fills in a missing dc:creator.
func Parse(xml, defaultAuthor string) []domain.FeedPost {
	matches := itemRe.FindAllStringSubmatch(xml, -1)
	posts := make([]domain.FeedPost, 0, len(matches))
	for _, m := range matches {
		item := m[1]

		title := firstNonEmpty(extractCDATA(item, "title"), extractTag(item, "title"))
		description := firstNonEmpty(extractCDATA(item, "description"), extractTag(item, "description"))
		link := extractTag(item, "link")
		pubDate := extractTag(item, "pubDate")
		creator := firstNonEmpty(extractCDATA(item, "dc:creator"), extractTag(item, "dc:creator"))

		if title == "" || link == "" {
			continue
		}
		author := CleanText(creator)
		if author == "" {
			author = defaultAuthor
		}
		posts = append(posts, domain.FeedPost{
			Title:       CleanText(title),
			Description: CleanText(description),
			Link:        link,
			PubDate:     pubDate,
			Date:        FormatDate(pubDate),
			Author:      author,
		})
	}
	return posts
}

// CleanText strips markup, decodes the supported entity set, collapses
// whitespace runs to a single space and returns NFC-normalized text.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = tagsRe.ReplaceAllString(s, "")
	for _, r := range entitySteps {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	s = spaceRe.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// FormatDate renders an RSS date as "Jan 5, 2025". Empty input yields "";
// input in no known layout is returned unchanged.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return s
}

func extractTag(item, tag string) string {
	m := tagRegexp(plainRe, tag, `(?i)<%s[^>]*>([^<]*)</%s>`).FindStringSubmatch(item)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractCDATA(item, tag string) string {
	m := tagRegexp(cdataRe, tag, `(?i)<%s[^>]*><!\[CDATA\[([\s\S]*?)\]\]></%s>`).FindStringSubmatch(item)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func tagRegexp(cache map[string]*regexp.Regexp, tag, pattern string) *regexp.Regexp {
	tagReMu.Lock()
	defer tagReMu.Unlock()
	if re, ok := cache[tag]; ok {
		return re
	}
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(strings.ReplaceAll(pattern, "%s", q))
	cache[tag] = re
	return re
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
