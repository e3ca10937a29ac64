package opengraph

import (
	"net/url"
	"strings"
	"testing"
)

const imageURL = "https://www.aem.live/tools/rum/_ogimage"

func TestEscapeHTML(t *testing.T) {
	cases := map[string]string{
		`"><script>alert(1)</script>`:   "&quot;&gt;&lt;script&gt;alert(1)&lt;/script&gt;",
		`"><img src=x onerror=alert(5)>`: "&quot;&gt;&lt;img src=x onerror=alert(5)&gt;",
		`' onmouseover='alert(1)'`:       "&#039; onmouseover=&#039;alert(1)&#039;",
		"example.com":                    "example.com",
		"":                               "",
		"&lt;script&gt;":                 "&amp;lt;script&amp;gt;",
	}
	for in, want := range cases {
		if got := EscapeHTML(in); got != want {
			t.Errorf("EscapeHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTags(t *testing.T) {
	q, _ := url.ParseQuery("view=week&domain=www.example.com&filter=pageviews+%3E+100&checkpoint=click&checkpoint=enter")
	tags := Tags(q, imageURL)

	for _, want := range []string{
		`property="og:site_name" content="RUM Explorer"`,
		`property="og:title" content="RUM Data for www.example.com"`,
		`property="og:description" content="Weekly RUM data for www.example.com (pageviews &gt; 100, click,enter)"`,
		`property="og:image" content="https://www.aem.live/tools/rum/_ogimage?checkpoint=click&amp;checkpoint=enter&amp;domain=www.example.com&amp;filter=pageviews+%3E+100&amp;view=week"`,
		`property="og:image:width" content="500"`,
		`property="og:image:height" content="348"`,
		`property="og:image:type" content="image/jpeg"`,
	} {
		if !strings.Contains(tags, want) {
			t.Errorf("Tags lack %s:\n%s", want, tags)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(tags), "</head>") {
		t.Fatalf("Tags do not close head:\n%s", tags)
	}
}

func TestTagsViews(t *testing.T) {
	cases := map[string]string{
		"day":   `content="Daily RUM data for x"`,
		"Month": `content="Monthly RUM data for x"`,
		"":      `content="RUM data for x"`,
	}
	for view, want := range cases {
		q := url.Values{"domain": {"x"}}
		if view != "" {
			q.Set("view", view)
		}
		if tags := Tags(q, imageURL); !strings.Contains(tags, want) {
			t.Errorf("view %q: tags lack %s", view, want)
		}
	}
}

func TestTagsEscapeParameters(t *testing.T) {
	q := url.Values{
		"domain":     {`"><script>alert(1)</script>`},
		"filter":     {`"><img src=x onerror=alert(2)>`},
		"checkpoint": {`' onmouseover='alert(3)'`},
		"view":       {`"><svg onload=alert(1)>`},
	}
	tags := Tags(q, imageURL)
	for _, raw := range []string{"<script>", "<img", "onmouseover='", "<svg"} {
		if strings.Contains(tags, raw) {
			t.Errorf("Tags contain unescaped %s:\n%s", raw, tags)
		}
	}
}

func TestInject(t *testing.T) {
	page := []byte("<html><head><title>x</title></head><body></body></html>")
	out := string(Inject(page, "<meta />\n</head>"))
	want := "<html><head><title>x</title><meta />\n</head><body></body></html>"
	if out != want {
		t.Fatalf("Page is %s", out)
	}
}

func TestFindImage(t *testing.T) {
	doc := `<html><head>
		<meta property="og:title" content="Title">
		<meta content="https://example.com/a.png" property="og:image">
		<meta property="og:image" content="https://example.com/b.png">
	</head></html>`
	content, found, err := FindImage(strings.NewReader(doc))
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if content != "https://example.com/a.png" {
		t.Fatalf("Content is %s", content)
	}
}

func TestFindImageMissing(t *testing.T) {
	_, found, err := FindImage(strings.NewReader(`<html><head><meta name="x"></head></html>`))
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
}

func TestFindImageEmpty(t *testing.T) {
	content, found, err := FindImage(strings.NewReader(`<meta property="og:image" content="" />`))
	if err != nil || !found || content != "" {
		t.Fatalf("content=%q found=%v err=%v", content, found, err)
	}
}
