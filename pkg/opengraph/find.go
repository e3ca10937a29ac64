package opengraph

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// FindImage returns the content of the first `meta[property="og:image"]` of the
// document. The scan stops at the first match. found is false if the document
// has no such element; content may be empty even if found.
func FindImage(r io.Reader) (content string, found bool, err error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("parse html: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			if content, ok := ogImageContent(z); ok {
				return content, true, nil
			}
		}
	}
}

func ogImageContent(z *html.Tokenizer) (string, bool) {
	var property, content string
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "property":
			property = string(val)
		case "content":
			content = string(val)
		}
		if !more {
			break
		}
	}
	return content, property == "og:image"
}
