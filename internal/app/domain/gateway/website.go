package gateway

import (
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// placeholderDomains are hosts models emit when they invent a website.
var placeholderDomains = []string{
	"example.com",
	"example.org",
	"example.net",
	"yourwebsite.com",
	"localhost",
}

func newPlaceholderMatcher(domains []string) ahocorasick.AhoCorasick {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	return builder.Build(domains)
}

// IsLiveWebsite reports whether website looks like a real, linkable address:
// an http(s) scheme, longer than 10 characters, not the unknown sentinel and
// free of placeholder domains.
func (g *Gateway) IsLiveWebsite(website string) bool {
	website = strings.TrimSpace(website)
	if website == "" || website == "#" || len(website) <= 10 {
		return false
	}
	if !strings.HasPrefix(strings.ToLower(website), "http") {
		return false
	}
	return len(g.placeholders.FindAll(website)) == 0
}
