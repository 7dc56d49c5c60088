// Package manifest reads and writes the per-gallery images.json file.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"time"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// FileName is the manifest name inside a gallery output directory.
const FileName = "images.json"

// Manifest describes every rendered image of one gallery.
type Manifest struct {
	Images    []models.ImageRecord `json:"images"`
	Generated string               `json:"generated"`
	Sizes     Sizes                `json:"sizes"`
}

// Sizes is the tier table. It serialises as a JSON object of name to pixels,
// keys in tier order.
type Sizes []models.SizeSpec

// Get returns the pixel size of the named tier, or zero.
func (s Sizes) Get(name string) int {
	for _, t := range s {
		if t.Name == name {
			return t.Size
		}
	}
	return 0
}

// MarshalJSON implements json.Marshaler.
func (s Sizes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(t.Size))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping the key order.
func (s *Sizes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sizes: expected an object")
	}

	var out Sizes
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var px int
		if err := dec.Decode(&px); err != nil {
			return fmt.Errorf("sizes: %s: %w", name, err)
		}
		out = append(out, models.SizeSpec{Name: name, Size: px})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// New builds a manifest from records, sorted ascending by ID.
func New(records []models.ImageRecord, sizes []models.SizeSpec, now time.Time) *Manifest {
	images := make([]models.ImageRecord, len(records))
	copy(images, records)
	sort.Slice(images, func(i, j int) bool { return images[i].ID < images[j].ID })
	return &Manifest{
		Images:    images,
		Generated: now.UTC().Format(time.RFC3339Nano),
		Sizes:     append(Sizes(nil), sizes...),
	}
}

// Lookup indexes the records by ID.
func (m *Manifest) Lookup() map[string]models.ImageRecord {
	out := make(map[string]models.ImageRecord, len(m.Images))
	for _, r := range m.Images {
		out[r.ID] = r
	}
	return out
}

// Load reads the manifest from store. A missing file yields an empty
// manifest and no error.
func Load(store storage.Provider) (*Manifest, error) {
	data, err := store.Read(FileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest JSON.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	return &m, nil
}

// Save writes m to store atomically, indented with two spaces.
func Save(store storage.Provider, m *Manifest) error {
	if m.Images == nil {
		m.Images = []models.ImageRecord{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := store.Write(FileName, append(data, '\n')); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}
