package validations

import (
	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
)

// ValidateSettingsPatch rejects values that do not match the overlay
// settings shape before they reach the pending update buffer.
func ValidateSettingsPatch(patch domainOverlay.SettingsPatch) error {
	if patch.Width != nil && *patch.Width <= 0 {
		return pkgError.ValidationError("width must be positive")
	}
	if patch.Height != nil && *patch.Height <= 0 {
		return pkgError.ValidationError("height must be positive")
	}
	if patch.Opacity != nil && (*patch.Opacity < 0 || *patch.Opacity > 100) {
		return pkgError.ValidationError("opacity must be between 0 and 100")
	}
	if patch.PositionPreset != nil && *patch.PositionPreset != "" && !domainOverlay.ValidPreset(*patch.PositionPreset) {
		return pkgError.ValidationError("unknown position preset " + *patch.PositionPreset)
	}
	return nil
}
