package generatepdf

import (
	"os"

	"render-worker/internal/common/errors"
	"render-worker/internal/common/validation"
)

// RequiredFields lists the command fields generate cannot run without.
var RequiredFields = []string{"sourcePath", "stylesheetPath", "outputPath"}

func validateInput(input *Input) error {
	missing := validation.MissingFields(map[string]string{
		"sourcePath":     input.SourcePath,
		"stylesheetPath": input.StylesheetPath,
		"outputPath":     input.OutputPath,
	}, RequiredFields...)
	if len(missing) > 0 {
		return errors.NewValidationFailedError(RequiredFields, missing)
	}
	return nil
}

func checkResources(input *Input) error {
	if !fileExists(input.SourcePath) {
		return errors.NewResourceNotFoundError("Source", input.SourcePath)
	}
	if !fileExists(input.StylesheetPath) {
		return errors.NewResourceNotFoundError("Stylesheet", input.StylesheetPath)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
