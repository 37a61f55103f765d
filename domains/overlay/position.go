package overlay

import "strings"

// Position presets supported by overlay definitions.
const (
	PresetTopLeft      = "top-left"
	PresetTopCenter    = "top-center"
	PresetTopRight     = "top-right"
	PresetCenterLeft   = "center-left"
	PresetCenter       = "center"
	PresetCenterRight  = "center-right"
	PresetBottomLeft   = "bottom-left"
	PresetBottomCenter = "bottom-center"
	PresetBottomRight  = "bottom-right"
)

// Conservative fallback used before the native shell has reported real
// screen metrics. Stored explicit x/y always override a computed preset, so
// a wrong assumption only affects the very first placement.
const (
	DefaultScreenWidth  = 1920.0
	DefaultScreenHeight = 1080.0
)

// ValidPreset reports whether preset names one of the nine anchors.
func ValidPreset(preset string) bool {
	switch preset {
	case PresetTopLeft, PresetTopCenter, PresetTopRight,
		PresetCenterLeft, PresetCenter, PresetCenterRight,
		PresetBottomLeft, PresetBottomCenter, PresetBottomRight:
		return true
	}
	return false
}

// PresetToXY maps a named anchor to window coordinates. It is pure and
// side-effect free so it can run before any window or screen query resolves.
func PresetToXY(preset string, width, height, screenWidth, screenHeight float64) (x, y float64) {
	return presetToXYPadded(preset, width, height, screenWidth, screenHeight, 0)
}

func presetToXYPadded(preset string, width, height, screenWidth, screenHeight, padding float64) (x, y float64) {
	switch {
	case strings.Contains(preset, "left"):
		x = padding
	case strings.Contains(preset, "right"):
		x = screenWidth - width - padding
	default:
		x = (screenWidth - width) / 2
	}

	switch {
	case strings.Contains(preset, "top"):
		y = padding
	case strings.Contains(preset, "bottom"):
		y = screenHeight - height - padding
	default:
		y = (screenHeight - height) / 2
	}

	return x, y
}
