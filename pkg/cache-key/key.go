package cachekey

import "net/url"

const separator = "/"

type CacheKeyer struct {
	// Prefix shared by all keys, e.g. the top-level "folder" in the object store.
	Prefix string
}

func NewCacheKeyer(prefix string) CacheKeyer {
	return CacheKeyer{Prefix: prefix}
}

// GetKey returns the storage key for a preview of the given domain and view.
// The full query takes part in the key. Parameters are sorted by name (the
// order of repeated values is kept), so parameter order never changes the key.
func (c CacheKeyer) GetKey(domain, view string, query url.Values) string {
	// url.Values.Encode sorts by key
	return c.Prefix + separator + domain + separator + view + separator + query.Encode()
}
