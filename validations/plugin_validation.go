package validations

import (
	"context"

	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	domainPlugin "github.com/AzielCF/az-overlay/domains/plugin"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateManifest(ctx context.Context, manifest *domainPlugin.Manifest) error {
	err := validation.ValidateStructWithContext(ctx, manifest,
		validation.Field(&manifest.ID, validation.Required),
		validation.Field(&manifest.Name, validation.Required),
		validation.Field(&manifest.Version, validation.Required),
		validation.Field(&manifest.Entry, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if manifest.Overlays != nil {
		for pair := manifest.Overlays.Oldest(); pair != nil; pair = pair.Next() {
			if err := validateOverlayDefinition(pair.Key, pair.Value); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateOverlayDefinition(overlayID string, def *domainPlugin.OverlayDefinition) error {
	if overlayID == "" {
		return pkgError.ValidationError("overlay id must not be empty")
	}
	if def.Width <= 0 || def.Height <= 0 {
		return pkgError.ValidationError("overlay " + overlayID + " must declare a positive width and height")
	}
	if def.DefaultPosition != "" && !domainOverlay.ValidPreset(def.DefaultPosition) {
		return pkgError.ValidationError("overlay " + overlayID + " has unknown position preset " + def.DefaultPosition)
	}
	return nil
}
