package aula

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"golang.org/x/net/html"
)

// parseForm extracts the action URL of the first form in an HTML document and
// collects every input field that carries both a name and a value attribute.
// Inputs are collected document-wide, not scoped to the form, matching how
// the portal's interstitial pages are laid out.
func parseForm(r io.Reader) (string, url.Values, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var action string
	formFound := false
	fields := url.Values{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				if !formFound {
					formFound = true
					action, _ = lookupAttr(n, "action")
				}
			case "input":
				name, hasName := lookupAttr(n, "name")
				value, hasValue := lookupAttr(n, "value")
				if hasName && hasValue {
					fields.Set(name, value)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if !formFound {
		return "", nil, errors.New("no form in document")
	}
	return action, fields, nil
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
