// Package system defines the supported console families and maps ROM paths
// onto them.
package system

import (
	"fmt"
	"slices"
	"strings"
)

// System identifies a console family. The zero value is Unknown.
type System int

const (
	Unknown System = iota
	NDS
	GBA
	GBC
	GB
	WonderSwan
)

// HashMethod names the hashing convention the catalog uses for a system.
type HashMethod int

const (
	// HashWholeContent digests every byte of the ROM.
	HashWholeContent HashMethod = iota
	// HashStructuredNDS digests the DS header, boot code and icon/title block.
	HashStructuredNDS
)

type definition struct {
	short       string
	catalogName string
	extensions  []string
	method      HashMethod
	innerExt    string
}

var definitions = map[System]definition{
	NDS:        {short: "nds", catalogName: "Nintendo DS", extensions: []string{"nds"}, method: HashStructuredNDS, innerExt: "nds"},
	GBA:        {short: "gba", catalogName: "Game Boy Advance", extensions: []string{"gba"}},
	GBC:        {short: "gbc", catalogName: "Game Boy Color", extensions: []string{"gbc"}},
	GB:         {short: "gb", catalogName: "Game Boy", extensions: []string{"gb"}},
	WonderSwan: {short: "ws", catalogName: "WonderSwan", extensions: []string{"ws", "wsc"}},
}

var ordered = []System{NDS, GBA, GBC, GB, WonderSwan}

// All returns every supported system in classification order.
func All() []System {
	return slices.Clone(ordered)
}

// Valid reports whether s is a supported system.
func (s System) Valid() bool {
	_, ok := definitions[s]
	return ok
}

// String returns the short lowercase name used in flags and logs.
func (s System) String() string {
	if def, ok := definitions[s]; ok {
		return def.short
	}
	return "unknown"
}

// CatalogName is the console name the remote catalog lists the system under.
func (s System) CatalogName() string {
	return definitions[s].catalogName
}

// Extensions returns the lowercase file extensions, without dots.
func (s System) Extensions() []string {
	return slices.Clone(definitions[s].extensions)
}

// HashMethod returns the hashing convention for s.
func (s System) HashMethod() HashMethod {
	return definitions[s].method
}

// InnerExtension is the extension an archive member must carry to be hashed
// for s. Empty means the first archive member is used.
func (s System) InnerExtension() string {
	return definitions[s].innerExt
}

// HasExtension reports whether ext (lowercase, no dot) belongs to s.
func (s System) HasExtension(ext string) bool {
	return slices.Contains(definitions[s].extensions, ext)
}

// ForExtension returns the first system in classification order owning ext.
func ForExtension(ext string) (System, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return Unknown, false
	}
	for _, s := range ordered {
		if s.HasExtension(ext) {
			return s, true
		}
	}
	return Unknown, false
}

// Parse resolves a short name ("nds"), an extension ("wsc") or a catalog name
// ("Game Boy Advance"), case-insensitively.
func Parse(value string) (System, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Unknown, false
	}
	for _, s := range ordered {
		def := definitions[s]
		if strings.EqualFold(value, def.short) || strings.EqualFold(value, def.catalogName) {
			return s, true
		}
	}
	return ForExtension(value)
}

// MarshalText renders the short name, so JSON output reads "gba" not 2.
func (s System) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts anything Parse does; "unknown" and "" map to Unknown.
func (s *System) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" || strings.EqualFold(value, "unknown") {
		*s = Unknown
		return nil
	}
	parsed, ok := Parse(value)
	if !ok {
		return fmt.Errorf("unknown system %q", value)
	}
	*s = parsed
	return nil
}
