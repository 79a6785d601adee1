package monster_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfell/emberfell/internal/game/encounter"
	"github.com/emberfell/emberfell/internal/game/monster"
)

const goblinYAML = `
id: goblin
name: Goblin
description: A sneering green raider.
max_hp: 7
ac: 13
dex_mod: 2
xp_value: 50
attack_bonus: 4
damage_die: 6
stats:
  speed: 30
`

func TestLoadTemplateFromBytes(t *testing.T) {
	tmpl, err := monster.LoadTemplateFromBytes([]byte(goblinYAML))
	require.NoError(t, err)

	assert.Equal(t, "goblin", tmpl.ID)
	assert.Equal(t, "Goblin", tmpl.Name)
	assert.Equal(t, 7, tmpl.MaxHP)
	assert.Equal(t, 13, tmpl.AC)
	assert.Equal(t, 2, tmpl.DexMod)
	assert.Equal(t, 50, tmpl.XPValue)
	assert.Equal(t, 30, tmpl.Stats["speed"])
}

func TestLoadTemplateFromBytesRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing id":   "name: X\nmax_hp: 5\nac: 12\n",
		"missing name": "id: x\nmax_hp: 5\nac: 12\n",
		"zero hp":      "id: x\nname: X\nmax_hp: 0\nac: 12\n",
		"low ac":       "id: x\nname: X\nmax_hp: 5\nac: 3\n",
		"negative xp":  "id: x\nname: X\nmax_hp: 5\nac: 12\nxp_value: -1\n",
		"bad yaml":     "id: [unclosed\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := monster.LoadTemplateFromBytes([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplatesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "goblin.yaml"), []byte(goblinYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	templates, err := monster.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "goblin", templates[0].ID)
}

func TestManagerSpawnUniqueInstances(t *testing.T) {
	tmpl, err := monster.LoadTemplateFromBytes([]byte(goblinYAML))
	require.NoError(t, err)

	mgr, err := monster.NewManager([]*monster.Template{tmpl})
	require.NoError(t, err)

	first, err := mgr.Spawn("goblin")
	require.NoError(t, err)
	second, err := mgr.Spawn("goblin")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, encounter.KindMonster, first.Kind)
	assert.Equal(t, first.MaxHP, first.CurrentHP)
	assert.Equal(t, 4, first.Stats["attack_bonus"])
	assert.Equal(t, 6, first.Stats["damage_die"])
}

func TestManagerSpawnUnknownTemplate(t *testing.T) {
	mgr, err := monster.NewManager(nil)
	require.NoError(t, err)

	_, err = mgr.Spawn("dragon")
	assert.Error(t, err)
}

func TestNewManagerRejectsDuplicateIDs(t *testing.T) {
	tmpl, err := monster.LoadTemplateFromBytes([]byte(goblinYAML))
	require.NoError(t, err)

	_, err = monster.NewManager([]*monster.Template{tmpl, tmpl})
	assert.Error(t, err)
}
