package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripQuery returns target without its query string and fragment. Signed CDN
// URLs sometimes fail on stale signature parameters while the bare path works.
func StripQuery(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// TextFromFragment returns the text content of an HTML fragment, decoding
// entities and dropping inline markup such as <font> tags in captions.
func TextFromFragment(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + fragment + "</div>"))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Find("div").First().Text()), " ")
}
