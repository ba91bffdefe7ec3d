package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTables_Embedded(t *testing.T) {
	tables, err := LoadTables()
	require.NoError(t, err)

	assert.NotEmpty(t, tables.Version)
	assert.Len(t, tables.Archetype, 15)
	assert.Len(t, tables.MBTI, 16)

	// every pairing target must itself be a known key
	for key, values := range tables.Archetype {
		for _, v := range values {
			assert.Contains(t, tables.Archetype, v, "archetype %q pairs with unknown %q", key, v)
		}
	}
	for key, values := range tables.MBTI {
		for _, v := range values {
			assert.Contains(t, tables.MBTI, v, "mbti %q pairs with unknown %q", key, v)
		}
	}
}

func TestLoadTables_PathOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")
	custom := `{"version":"test","archetype":{"hero":["sage"],"sage":["hero"]},"mbti":{"INTJ":["ENFP"],"ENFP":["INTJ"]}}`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))
	t.Setenv("MATCH_TABLES_PATH", path)

	tables, err := LoadTables()
	require.NoError(t, err)
	assert.Equal(t, "test", tables.Version)
	assert.True(t, tables.ArchetypeListed("hero", "sage"))
	assert.False(t, tables.ArchetypeListed("hero", "rebel"))
}

func TestLoadTablesFromFile_Missing(t *testing.T) {
	_, err := LoadTablesFromFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestParseTables_RejectsEmptyPairings(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty archetype table", `{"version":"v","archetype":{},"mbti":{"INTJ":["ENFP"]}}`},
		{"empty mbti table", `{"version":"v","archetype":{"hero":["sage"]},"mbti":{}}`},
		{"archetype with no pairings", `{"version":"v","archetype":{"hero":[]},"mbti":{"INTJ":["ENFP"]}}`},
		{"invalid json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTables([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestTables_LookupNormalization(t *testing.T) {
	tables, err := LoadTables()
	require.NoError(t, err)

	assert.True(t, tables.ArchetypeListed("Innocent", "CAREGIVER"))
	assert.True(t, tables.MBTIListed(" intj ", "enfp"))
	assert.False(t, tables.ArchetypeListed("unknown", "sage"))
	assert.False(t, tables.MBTIListed("XXXX", "ENFP"))
}
