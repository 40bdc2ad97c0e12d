// Package linkcheck finds internal links in composed documents that point
// at files the build did not produce.
package linkcheck

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// Link is one link-bearing attribute of a document.
type Link struct {
	URL       string
	Tag       string
	Attribute string
}

// Broken is a link whose target does not exist.
type Broken struct {
	Page   string // document containing the link
	URL    string // link as written
	Target string // resolved output-relative path
	Reason string
}

func (b Broken) String() string {
	return fmt.Sprintf("%s: %s (%s)", b.Page, b.URL, b.Reason)
}

// Checker resolves links of documents against the set of written files.
type Checker struct {
	// BasePath is the URL prefix the site is served under; root-relative
	// links outside it are not checked.
	BasePath string
	// Exists reports whether an output-relative path was written.
	Exists func(rel string) bool
}

// ExtractLinks returns every href/src value in r, in document order.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	var links []Link
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr := linkAttr(n.Data); attr != "" {
				if v := getAttr(n, attr); v != "" {
					links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// Check returns the broken internal links of the document at docPath.
func (c *Checker) Check(docPath string, r io.Reader) ([]Broken, error) {
	links, err := ExtractLinks(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", docPath, err)
	}
	var broken []Broken
	for _, l := range links {
		target, ok, reason := c.resolve(docPath, l.URL)
		if !ok {
			continue
		}
		if reason == "" && !c.exists(target) {
			reason = "target not found"
		}
		if reason != "" {
			broken = append(broken, Broken{Page: docPath, URL: l.URL, Target: target, Reason: reason})
		}
	}
	return broken, nil
}

// resolve maps a link to an output-relative path. ok is false for links
// that are not checked. A non-empty reason marks the link as broken.
func (c *Checker) resolve(docPath, raw string) (target string, ok bool, reason string) {
	if !ShouldVerify(raw) {
		return "", false, ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", true, "unparsable URL"
	}
	if u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false, ""
	}

	p := u.Path
	if strings.HasPrefix(p, "/") {
		base := c.BasePath
		if base == "" {
			base = "/"
		}
		if !strings.HasPrefix(p, base) {
			return "", false, ""
		}
		p = strings.TrimPrefix(p, base)
	} else {
		p = path.Join(path.Dir(docPath), p)
	}

	if strings.HasSuffix(u.Path, "/") || p == "" || p == "." {
		p = path.Join(p, "index.html")
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return p, true, "escapes the output root"
	}
	return p, true, ""
}

func (c *Checker) exists(target string) bool {
	if c.Exists == nil {
		return false
	}
	if c.Exists(target) {
		return true
	}
	return path.Ext(target) == "" && c.Exists(path.Join(target, "index.html"))
}

// ShouldVerify reports whether a link value is checked at all.
func ShouldVerify(raw string) bool {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return false
	}
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(raw, prefix) {
			return false
		}
	}
	return true
}

func linkAttr(tag string) string {
	switch tag {
	case "a", "link":
		return "href"
	case "img", "script", "source", "video", "audio", "iframe":
		return "src"
	}
	return ""
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
