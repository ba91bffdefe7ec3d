package matching

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// The compatibility tables ship as a versioned JSON asset so pairings can
// be retuned without touching the scoring logic. The embedded copy is the
// default; MATCH_TABLES_PATH points at an override file when set.
//
//go:embed tables.json
var embeddedTables []byte

// CompatibilityTables holds the fixed archetype and MBTI pairing tables.
// The archetype table is consulted for cross-gender pairs only and is not
// guaranteed symmetric: X listing Y does not imply Y lists X.
type CompatibilityTables struct {
	Version   string              `json:"version"`
	Archetype map[string][]string `json:"archetype"`
	MBTI      map[string][]string `json:"mbti"`
}

// LoadTables loads the default embedded tables, honoring the
// MATCH_TABLES_PATH override
func LoadTables() (*CompatibilityTables, error) {
	if path := os.Getenv("MATCH_TABLES_PATH"); path != "" {
		return LoadTablesFromFile(path)
	}
	return parseTables(embeddedTables)
}

// LoadTablesFromFile loads tables from a JSON file on disk
func LoadTablesFromFile(path string) (*CompatibilityTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}
	return parseTables(data)
}

func parseTables(data []byte) (*CompatibilityTables, error) {
	var tables CompatibilityTables
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse compatibility tables: %w", err)
	}
	if err := tables.validate(); err != nil {
		return nil, err
	}
	return &tables, nil
}

func (t *CompatibilityTables) validate() error {
	if len(t.Archetype) == 0 {
		return fmt.Errorf("compatibility tables: archetype table is empty")
	}
	if len(t.MBTI) == 0 {
		return fmt.Errorf("compatibility tables: mbti table is empty")
	}
	for key, values := range t.Archetype {
		if len(values) == 0 {
			return fmt.Errorf("compatibility tables: archetype %q has no pairings", key)
		}
	}
	for key, values := range t.MBTI {
		if len(values) == 0 {
			return fmt.Errorf("compatibility tables: mbti %q has no pairings", key)
		}
	}
	return nil
}

// ArchetypeListed reports whether candidate appears in the seeker's
// archetype pairing list. Lookup only; the same-gender identity rule lives
// in the scorer.
func (t *CompatibilityTables) ArchetypeListed(seekerArchetype, candidateArchetype string) bool {
	seekerArchetype = strings.ToLower(strings.TrimSpace(seekerArchetype))
	candidateArchetype = strings.ToLower(strings.TrimSpace(candidateArchetype))
	for _, compatible := range t.Archetype[seekerArchetype] {
		if compatible == candidateArchetype {
			return true
		}
	}
	return false
}

// MBTIListed reports whether candidate appears in the seeker's MBTI
// pairing list. Gender plays no role here.
func (t *CompatibilityTables) MBTIListed(seekerType, candidateType string) bool {
	seekerType = strings.ToUpper(strings.TrimSpace(seekerType))
	candidateType = strings.ToUpper(strings.TrimSpace(candidateType))
	for _, compatible := range t.MBTI[seekerType] {
		if compatible == candidateType {
			return true
		}
	}
	return false
}
