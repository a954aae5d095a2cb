package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"romverify/internal/system"
)

// Console is one row of the console id table.
type Console struct {
	ID           int    `json:"ID"`
	Name         string `json:"Name"`
	IconURL      string `json:"IconURL"`
	Active       bool   `json:"Active"`
	IsGameSystem bool   `json:"IsGameSystem"`
}

// knownConsoleIDs are the ids the service has used for the supported systems.
// They are used when no console table is available.
var knownConsoleIDs = map[system.System]int{
	system.GB:         4,
	system.GBA:        5,
	system.GBC:        6,
	system.NDS:        18,
	system.WonderSwan: 53,
}

// KnownConsoleID returns the built-in console id for sys.
func KnownConsoleID(sys system.System) (int, bool) {
	id, ok := knownConsoleIDs[sys]
	return id, ok
}

// DecodeConsoles parses a console id document.
func DecodeConsoles(r io.Reader) ([]Console, error) {
	var consoles []Console
	if err := json.NewDecoder(r).Decode(&consoles); err != nil {
		return nil, fmt.Errorf("decode console ids: %w", err)
	}
	return consoles, nil
}

// SystemIDs maps each supported system to its console id by catalog name.
// Systems missing from consoles fall back to the built-in ids.
func SystemIDs(consoles []Console) map[system.System]int {
	ids := make(map[system.System]int, len(knownConsoleIDs))
	for _, sys := range system.All() {
		for _, c := range consoles {
			if strings.EqualFold(strings.TrimSpace(c.Name), sys.CatalogName()) {
				ids[sys] = c.ID
				break
			}
		}
		if _, ok := ids[sys]; !ok {
			if id, known := KnownConsoleID(sys); known {
				ids[sys] = id
			}
		}
	}
	return ids
}
