package gallery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/folio/internal/storage"
)

// siteGallery is one entry of the galleries.items map in site.json.
type siteGallery struct {
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
	Layout      any    `json:"layout,omitempty"`
}

type siteGalleries struct {
	Default       *string                `json:"default"`
	Items         map[string]siteGallery `json:"items"`
	DefaultLayout any                    `json:"defaultLayout,omitempty"`
}

// UpdateSiteConfig rewrites the "galleries" section of the site config at
// path to match galleries (in display order). Existing display names and
// layouts survive; new galleries get a generated name. The default gallery is
// kept while it still exists, else the first gallery is used. Other top-level
// keys are preserved.
func UpdateSiteConfig(path string, galleries []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("site config: read: %w", err)
	}
	doc, err := parseObject(data)
	if err != nil {
		return fmt.Errorf("site config: parse: %w", err)
	}

	var existing struct {
		Default       string                     `json:"default"`
		Items         map[string]json.RawMessage `json:"items"`
		DefaultLayout any                        `json:"defaultLayout"`
	}
	if raw, ok := doc.get("galleries"); ok {
		// A malformed section is replaced wholesale.
		_ = json.Unmarshal(raw, &existing)
	}

	next := siteGalleries{
		Items:         make(map[string]siteGallery, len(galleries)),
		DefaultLayout: existing.DefaultLayout,
	}
	present := make(map[string]struct{}, len(galleries))
	for i, name := range galleries {
		present[name] = struct{}{}
		entry := siteGallery{DisplayName: DisplayName(name), Order: i + 1}
		if raw, ok := existing.Items[name]; ok {
			var prev struct {
				DisplayName string `json:"displayName"`
				Layout      any    `json:"layout"`
			}
			if err := json.Unmarshal(raw, &prev); err == nil {
				if prev.DisplayName != "" {
					entry.DisplayName = prev.DisplayName
				}
				entry.Layout = prev.Layout
			}
		}
		next.Items[name] = entry
	}

	if _, ok := present[existing.Default]; ok && existing.Default != "" {
		d := existing.Default
		next.Default = &d
	} else if len(galleries) > 0 {
		d := galleries[0]
		next.Default = &d
	}

	section, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("site config: encode galleries: %w", err)
	}
	doc.set("galleries", section)

	out, err := doc.indent()
	if err != nil {
		return fmt.Errorf("site config: encode: %w", err)
	}
	dir, err := storage.NewFS(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("site config: %w", err)
	}
	if err := dir.Write(filepath.Base(path), out); err != nil {
		return fmt.Errorf("site config: write: %w", err)
	}
	return nil
}

type member struct {
	key   string
	value json.RawMessage
}

// object is a JSON object that keeps its key order.
type object []member

func parseObject(data []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("top level is not an object")
	}
	var out object
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		out.set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o object) get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// set replaces the value of key in place, or appends it.
func (o *object) set(key string, value json.RawMessage) {
	for i := range *o {
		if (*o)[i].key == key {
			(*o)[i].value = value
			return
		}
	}
	*o = append(*o, member{key: key, value: value})
}

// indent encodes o with two-space indentation and a trailing newline.
func (o object) indent() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(m.value)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
