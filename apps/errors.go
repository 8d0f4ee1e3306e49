package apps

import (
	"errors"
	"fmt"

	"modeldemos/features"
	"modeldemos/form"
	"modeldemos/ml"
)

// IsInputError reports whether err was caused by the submitted values rather
// than by the model.
func IsInputError(err error) bool {
	var (
		missing *features.MissingFieldError
		field   *form.FieldError
		unknown *ml.UnknownCategoryError
		img     *features.ImageError
	)
	return errors.As(err, &missing) || errors.As(err, &field) || errors.As(err, &unknown) || errors.As(err, &img)
}

// UserMessage renders a per-request error for the result panel.
func UserMessage(err error) string {
	var (
		missing  *features.MissingFieldError
		field    *form.FieldError
		unknown  *ml.UnknownCategoryError
		img      *features.ImageError
		mismatch *ml.SchemaMismatchError
		infer    *ml.InferenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &missing):
		return fmt.Sprintf("Please provide a value for %q.", missing.Field)
	case errors.As(err, &field):
		return fmt.Sprintf("Invalid value for %q: %s.", field.Field, field.Reason)
	case errors.As(err, &unknown):
		return fmt.Sprintf("%q is not a known %s; pick one of the listed options.", unknown.Value, unknown.Column)
	case errors.As(err, &img):
		return fmt.Sprintf("Could not read the uploaded image: %v.", img.Err)
	case errors.As(err, &mismatch):
		return fmt.Sprintf("The model cannot use this input: %v.", mismatch)
	case errors.As(err, &infer):
		return fmt.Sprintf("Error during prediction: %v.", infer.Err)
	default:
		return fmt.Sprintf("Error during prediction: %v.", err)
	}
}
