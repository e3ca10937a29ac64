// Package preview implements the screenshot cache behind the dashboard's
// Open-Graph preview images.
//
// Every preview is stored under its cache key with a state of pending,
// loaded or failed. The first request for a key gets a redirect to a
// placeholder image and starts a background generation: the key is claimed
// with a pending entry, the page is rendered, and the entry is replaced by
// a loaded (image) or failed (error text) entry. Loaded and failed entries
// are final. A failed key is never rendered again and keeps receiving the
// placeholder.
//
// The claim is a plain check-then-write. Two concurrent first requests for
// the same key can both render; the last terminal write wins.
package preview
