package jiofi

import (
	"regexp"
	"sync"
)

var (
	csrfTokenRegex = regexp.MustCompile(`(?i)<input[^>]*id=["']csrf_token2["'][^>]*value=["']([^"']+)["']`)

	tagRegexMu sync.Mutex
	tagRegexes = map[string]*regexp.Regexp{}
)

func tagRegex(tag string) *regexp.Regexp {
	tagRegexMu.Lock()
	defer tagRegexMu.Unlock()

	re, ok := tagRegexes[tag]
	if !ok {
		q := regexp.QuoteMeta(tag)
		re = regexp.MustCompile("<" + q + ">([^<]+)</" + q + ">")
		tagRegexes[tag] = re
	}
	return re
}

// ExtractTag returns the text of the first <tag>VALUE</tag> in document.
// It is a scrape, not a parser: the rest of the document is never validated.
func ExtractTag(document, tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	m := tagRegex(tag).FindStringSubmatch(document)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractCSRFToken returns the value of the csrf_token2 input on a device page.
func ExtractCSRFToken(html string) (string, bool) {
	m := csrfTokenRegex.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}
