// Package models defines the domain types for folio.
package models

import "time"

// Orientation classifies an image by comparing its width and height.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
	Square    Orientation = "square"
)

// SourceItem is one source image found in a gallery directory.
type SourceItem struct {
	ID      string    `json:"id"` // filename without extension
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// SizeSpec maps a named tier to a target long-edge length in pixels.
type SizeSpec struct {
	Name string `yaml:"name" json:"name"`
	Size int    `yaml:"size" json:"size"`
}

// ImageRecord is the persisted manifest entry for one image.
type ImageRecord struct {
	ID          string      `json:"id"`
	Orientation Orientation `json:"orientation"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
}
