package responsetransformer

import (
	"net/http"
	"strings"
)

// Rules adjust the headers of responses passed through from the origin.
// The first matching rule wins.
type Rules []Rule

type Rule struct {
	Prefix string `yaml:"prefix"`
	Path   string `yaml:"path"`
	// Query parameters that must be present. An empty value matches any value.
	Query map[string]string `yaml:"query"`
	// Default is the Cache-Control used when the origin sends none.
	Default string `yaml:"default"`
	// Override replaces any Cache-Control sent by the origin.
	Override string            `yaml:"override"`
	Headers  map[string]string `yaml:"headers"`
	Remove   []string          `yaml:"remove"`
}

// Apply applies the first matching rule to a successful GET or HEAD response.
// It returns the rule applied, or nil.
func (r Rules) Apply(res *http.Response) *Rule {
	if res.StatusCode < 200 || res.StatusCode > 299 || res.Request == nil {
		return nil
	}
	rule := r.find(res.Request)
	if rule == nil {
		return nil
	}
	applyRuleToHeader(*rule, res.Header)
	return rule
}

func applyRuleToHeader(rule Rule, header http.Header) {
	if rule.Override != "" {
		header.Set("Cache-Control", rule.Override)
	} else if rule.Default != "" && header.Get("Cache-Control") == "" {
		header.Set("Cache-Control", rule.Default)
	}
	for _, name := range rule.Remove {
		header.Del(name)
	}
	for name, value := range rule.Headers {
		header.Set(name, value)
	}
}

func (r Rules) find(req *http.Request) *Rule {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return nil
	}
rulesLoop:
	for i := range r {
		rule := &r[i]
		if rule.Path != "" && rule.Path != req.URL.Path {
			continue
		}
		if rule.Prefix != "" && !strings.HasPrefix(req.URL.Path, rule.Prefix) {
			continue
		}
		if len(rule.Query) > 0 {
			qry := req.URL.Query()
			for name, value := range rule.Query {
				if value == "" && !qry.Has(name) {
					continue rulesLoop
				} else if value != "" && qry.Get(name) != value {
					continue rulesLoop
				}
			}
		}
		return rule
	}
	return nil
}
