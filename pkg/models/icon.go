package models

import (
	"encoding/json"
	"strings"
)

// IconKind distinguishes the two icon sources a sticker may reference.
type IconKind int

const (
	// IconSymbolic is a named vector glyph from the built-in catalog.
	IconSymbolic IconKind = iota
	// IconImage is an external raster image.
	IconImage
)

func (k IconKind) String() string {
	if k == IconImage {
		return "image"
	}
	return "symbolic"
}

// Icon is a closed variant {SymbolicIcon(name), ImageIcon(url)}. Its wire form
// is a plain string; the kind is decided once, when the string is parsed.
type Icon struct {
	Kind IconKind
	Ref  string
}

// SymbolicIcon references a glyph by name.
func SymbolicIcon(name string) Icon {
	return Icon{Kind: IconSymbolic, Ref: name}
}

// ImageIcon references an external image.
func ImageIcon(url string) Icon {
	return Icon{Kind: IconImage, Ref: url}
}

var imageSchemes = []string{"http://", "https://", "data:", "file://"}

// ParseIcon decides the icon kind from its reference.
func ParseIcon(ref string) Icon {
	lower := strings.ToLower(strings.TrimSpace(ref))
	for _, scheme := range imageSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ImageIcon(ref)
		}
	}
	return SymbolicIcon(ref)
}

// String returns the wire form.
func (i Icon) String() string {
	return i.Ref
}

// IsImage reports whether the icon must be fetched.
func (i Icon) IsImage() bool {
	return i.Kind == IconImage
}

// MarshalJSON encodes the icon as its reference string.
func (i Icon) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Ref)
}

// UnmarshalJSON decodes a reference string and resolves its kind.
func (i *Icon) UnmarshalJSON(data []byte) error {
	var ref string
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*i = ParseIcon(ref)
	return nil
}
