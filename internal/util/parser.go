package util

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// LooksLikeHTML reports whether body starts like an HTML document.
func LooksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<head")) ||
		bytes.Contains(head, []byte("<title"))
}

// PageTitle returns the text of the first <title> element in an HTML body.
// It returns "" when the body is not HTML or has no title.
func PageTitle(body []byte) string {
	if !LooksLikeHTML(body) {
		return ""
	}
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node) bool
	walk = func(nd *html.Node) bool {
		if nd.Type == html.ElementNode && nd.Data == "title" {
			var sb strings.Builder
			for c := nd.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.Join(strings.Fields(sb.String()), " ")
			return true
		}
		for c := nd.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return title
}
