package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresetToXY_AllAnchors(t *testing.T) {
	const w, h = 300.0, 200.0
	const sw, sh = 1920.0, 1080.0

	cases := []struct {
		preset string
		x, y   float64
	}{
		{PresetTopLeft, 0, 0},
		{PresetTopCenter, 810, 0},
		{PresetTopRight, 1620, 0},
		{PresetCenterLeft, 0, 440},
		{PresetCenter, 810, 440},
		{PresetCenterRight, 1620, 440},
		{PresetBottomLeft, 0, 880},
		{PresetBottomCenter, 810, 880},
		{PresetBottomRight, 1620, 880},
	}

	for _, tc := range cases {
		x, y := PresetToXY(tc.preset, w, h, sw, sh)
		assert.Equal(t, tc.x, x, "preset %s x", tc.preset)
		assert.Equal(t, tc.y, y, "preset %s y", tc.preset)
	}
}

func TestPresetToXY_Deterministic(t *testing.T) {
	x1, y1 := PresetToXY(PresetCenter, 300, 200, 1920, 1080)
	x2, y2 := PresetToXY(PresetCenter, 300, 200, 1920, 1080)
	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)
}

func TestValidPreset(t *testing.T) {
	assert.True(t, ValidPreset("bottom-center"))
	assert.False(t, ValidPreset("middle"))
	assert.False(t, ValidPreset(""))
}

func TestSettingsPatch_ApplyAndIntrospection(t *testing.T) {
	enabled := true
	width := 640.0

	patch := SettingsPatch{Enabled: &enabled, Width: &width}
	assert.False(t, patch.IsEmpty())
	assert.True(t, patch.HasGeometry())

	s := Settings{Enabled: false, Width: 300, Height: 200}
	patch.Apply(&s)
	assert.True(t, s.Enabled)
	assert.Equal(t, 640.0, s.Width)
	assert.Equal(t, 200.0, s.Height, "untouched members keep their value")

	assert.True(t, SettingsPatch{}.IsEmpty())
	assert.False(t, SettingsPatch{}.HasGeometry())
}
