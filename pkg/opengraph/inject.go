package opengraph

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	siteName    = "RUM Explorer"
	imageWidth  = 500
	imageHeight = 348
	imageType   = "image/jpeg"
)

var headEnd = []byte("</head>")

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes text for use in element content and quoted attributes.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// Tags returns the Open-Graph meta tags describing the explorer page for the
// given query, followed by the closing head tag. imageURL is the preview image
// endpoint; the sorted query is appended to it.
func Tags(query url.Values, imageURL string) string {
	domain := query.Get("domain")
	view := strings.ToLower(query.Get("view"))

	var detailParts []string
	if filter := query.Get("filter"); filter != "" {
		detailParts = append(detailParts, filter)
	}
	if checkpoints := strings.Join(query["checkpoint"], ","); checkpoints != "" {
		detailParts = append(detailParts, checkpoints)
	}
	detail := ""
	if len(detailParts) > 0 {
		detail = " (" + strings.Join(detailParts, ", ") + ")"
	}

	description := fmt.Sprintf("%sRUM data for %s%s", viewly(view), domain, detail)
	image := imageURL + "?" + query.Encode()

	var b strings.Builder
	fmt.Fprintf(&b, "   <meta property=\"og:site_name\" content=\"%s\" />\n", siteName)
	fmt.Fprintf(&b, "       <meta property=\"og:title\" content=\"RUM Data for %s\" />\n", EscapeHTML(domain))
	fmt.Fprintf(&b, "       <meta property=\"og:description\" content=\"%s\" />\n", EscapeHTML(description))
	fmt.Fprintf(&b, "       <meta property=\"og:image\" content=\"%s\" />\n", EscapeHTML(image))
	fmt.Fprintf(&b, "       <meta property=\"og:image:width\" content=\"%d\" />\n", imageWidth)
	fmt.Fprintf(&b, "       <meta property=\"og:image:height\" content=\"%d\" />\n", imageHeight)
	fmt.Fprintf(&b, "       <meta property=\"og:image:type\" content=\"%s\" />\n", imageType)
	b.WriteString("   </head>\n   ")
	return b.String()
}

// viewly turns a view name into an adverb: "day" is "Daily ", "week" is "Weekly ".
func viewly(view string) string {
	switch view {
	case "":
		return ""
	case "day":
		return "Daily "
	}
	first, size := utf8.DecodeRuneInString(view)
	return string(unicode.ToUpper(first)) + view[size:] + "ly "
}

// Inject replaces every closing head tag of page with tags.
func Inject(page []byte, tags string) []byte {
	return bytes.ReplaceAll(page, headEnd, []byte(tags))
}
