package saf

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// LinkEntry is one published-location mapping from the ingestion payload.
type LinkEntry struct {
	Nro    string
	Handle string
	URL    string
}

type linkValue struct {
	Nro    string `json:"nro"`
	URL    string `json:"url"`
	Handle string `json:"handle"`
}

// NormalizeNro zero-pads purely numeric sequence keys to three digits.
// Non-numeric keys are rejected.
func NormalizeNro(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("empty sequence key")
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("sequence key %q is not numeric", key)
		}
	}
	if len(key) < 3 {
		key = strings.Repeat("0", 3-len(key)) + key
	}
	return key, nil
}

// ParseLinkPayload decodes the link-ingestion JSON. Two shapes are accepted:
// an object keyed by sequence number whose values are URL strings or
// {url,handle} objects, or an array of {nro,url,handle} objects. Entries with
// malformed keys are returned as per-entry errors, not a decode failure.
func ParseLinkPayload(data []byte) ([]LinkEntry, []error, error) {
	var entries []LinkEntry
	var entryErrs []error

	var asArray []linkValue
	if err := json.Unmarshal(data, &asArray); err == nil {
		for _, v := range asArray {
			nro, err := NormalizeNro(v.Nro)
			if err != nil {
				entryErrs = append(entryErrs, err)
				continue
			}
			entries = append(entries, LinkEntry{Nro: nro, Handle: strings.TrimSpace(v.Handle), URL: strings.TrimSpace(v.URL)})
		}
		return entries, entryErrs, nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err != nil {
		return nil, nil, fmt.Errorf("link payload is neither object nor array: %w", err)
	}

	keys := make([]string, 0, len(asObject))
	for k := range asObject {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		nro, err := NormalizeNro(key)
		if err != nil {
			entryErrs = append(entryErrs, err)
			continue
		}
		raw := asObject[key]

		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			entries = append(entries, LinkEntry{Nro: nro, URL: strings.TrimSpace(asString)})
			continue
		}
		var asValue linkValue
		if err := json.Unmarshal(raw, &asValue); err != nil {
			entryErrs = append(entryErrs, fmt.Errorf("entry %s: unsupported value shape", nro))
			continue
		}
		entries = append(entries, LinkEntry{Nro: nro, Handle: strings.TrimSpace(asValue.Handle), URL: strings.TrimSpace(asValue.URL)})
	}
	return entries, entryErrs, nil
}

// ResolveURL derives the public URL for an entry, falling back to the
// handle-based address under baseURL when no direct URL was supplied.
func (e LinkEntry) ResolveURL(baseURL string) string {
	if e.URL != "" {
		return e.URL
	}
	if e.Handle != "" && baseURL != "" {
		return strings.TrimRight(baseURL, "/") + "/handle/" + e.Handle
	}
	return ""
}
