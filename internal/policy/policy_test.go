package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteamPolicy(t *testing.T) {
	p := NewSteamPolicy()

	assert.Equal(t, "steam", p.ID())
	assert.Equal(t, "Steam", p.Name())
	assert.Equal(t, "steam://", p.StartTarget())
	assert.Contains(t, p.ProcessNames("windows"), "steam.exe")
	assert.Contains(t, p.ProcessNames("darwin"), "steam_osx")
	assert.Contains(t, p.ProcessNames("linux"), "steam")
}

func TestDota2Policy(t *testing.T) {
	p := NewDota2Policy()

	assert.Equal(t, "dota2", p.ID())
	assert.Equal(t, "Dota 2", p.Name())
	assert.Equal(t, "steam://rungameid/570", p.StartTarget())
	assert.Equal(t, []string{"dota2.exe"}, p.ProcessNames("windows"))
}

func TestToPreset_NormalizesNames(t *testing.T) {
	preset := ToPreset(NewSteamPolicy(), "darwin")

	assert.Equal(t, []string{"steam_osx", "steamwebhelper", "steam helper"}, preset.ProcessNames)
}

func TestRegistry(t *testing.T) {
	r := NewRegistryWithPolicies("windows", NewSteamPolicy(), NewDota2Policy())

	assert.Equal(t, []string{"dota2", "steam"}, r.List())

	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "dota2", all[0].ID)
	assert.Equal(t, "steam", all[1].ID)

	steam, err := r.Get("steam")
	require.NoError(t, err)
	assert.Equal(t, []string{"steam.exe", "steamwebhelper.exe"}, steam.ProcessNames)

	_, err = r.Get("minecraft")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dota2")
}

func TestNewRegistry_HasDefaults(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"dota2", "steam"}, r.List())
	for _, p := range r.GetAll() {
		assert.NotEmpty(t, p.ProcessNames, p.ID)
	}
}

func TestMergeBlacklist(t *testing.T) {
	tests := []struct {
		name    string
		current []string
		want    []string
	}{
		{name: "empty", current: nil, want: []string{"steam.exe", "steamwebhelper.exe"}},
		{name: "keeps order", current: []string{"dota2.exe", "steam.exe"}, want: []string{"dota2.exe", "steam.exe", "steamwebhelper.exe"}},
	}

	steam, err := NewRegistryWithPolicies("windows", NewSteamPolicy()).Get("steam")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeBlacklist(tt.current, steam))
		})
	}
}
