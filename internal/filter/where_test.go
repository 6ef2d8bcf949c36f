package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/buildtl/internal/layout"
)

func TestParseWhereClause(t *testing.T) {
	tests := []struct {
		clause  string
		field   string
		op      string
		value   string
		wantErr bool
	}{
		{"unit=Game.dll", "unit", "=", "Game.dll", false},
		{"Unit != Game.dll", "unit", "!=", "Game.dll", false},
		{"unit~^Game", "unit", "~", "^Game", false},
		{"unit!~Editor", "unit", "!~", "Editor", false},
		{"duration>=1s", "duration", ">=", "1s", false},
		{"slot<=2", "slot", "<=", "2", false},
		{"unit^Lib", "unit", "^", "Lib", false},
		{"unit$.dll", "unit", "$", ".dll", false},
		{"unit", "", "", "", true},
		{"=x", "", "", "", true},
		{"unit=", "", "", "", true},
		{"color=red", "", "", "", true},
		{"unit~[", "", "", "", true},
		{"duration>=soon", "", "", "", true},
		{"unit>=3", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			wc, err := ParseWhereClause(tt.clause)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.field, wc.Field)
			assert.Equal(t, tt.op, wc.Operator)
			assert.Equal(t, tt.value, wc.Value)
		})
	}
}

func TestWhereClauseMatch(t *testing.T) {
	row := &layout.Row{
		Iteration: "it-1",
		Unit:      "Library/ScriptAssemblies/Game.dll",
		Slot:      1,
		Duration:  750 * time.Millisecond,
		Offset:    2 * time.Second,
		Warnings:  3,
		Running:   true,
	}

	tests := []struct {
		clause string
		want   bool
	}{
		{"unit=Library/ScriptAssemblies/Game.dll", true},
		{"unit!=Game.dll", true},
		{"unit~Game\\.dll$", true},
		{"unit!~Editor", true},
		{"unit^Library/", true},
		{"unit$.pdb", false},
		{"iteration=it-1", true},
		{"slot=1", true},
		{"slot>=2", false},
		{"duration>=500ms", true},
		{"duration<=500ms", false},
		{"offset>=2s", true},
		{"warnings>=3", true},
		{"errors>=1", false},
		{"running=true", true},
		{"synthesized=true", false},
	}

	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			wc, err := ParseWhereClause(tt.clause)
			require.NoError(t, err)
			assert.Equal(t, tt.want, wc.Match(row))
		})
	}
}

func TestWhereFilterAndsClauses(t *testing.T) {
	f, err := NewWhereFilter([]string{"unit^Game", "errors>=1"})
	require.NoError(t, err)

	assert.True(t, f.Match(&layout.Row{Unit: "Game.dll", Errors: 1}))
	assert.False(t, f.Match(&layout.Row{Unit: "Game.dll"}))
	assert.False(t, f.Match(&layout.Row{Unit: "Editor.dll", Errors: 1}))

	none, err := NewWhereFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.True(t, none.Match(&layout.Row{}))
}
