package apps

import (
	"fmt"
	"path/filepath"
	"slices"

	"modeldemos/features"
	"modeldemos/form"
	"modeldemos/ml"
)

const imageField = "image"

var FashionClasses = []string{
	"T-shirt/top", "Trouser", "Pullover", "Dress", "Coat",
	"Sandal", "Shirt", "Sneaker", "Bag", "Ankle boot",
}

var fashionAdapter = features.ImageAdapter{Width: 28, Height: 28, Mode: features.Grayscale, Layout: features.FlatLayout}

var jellyfishAdapter = features.ImageAdapter{Width: 224, Height: 224, Mode: features.RGB, Layout: features.NHWCLayout}

func imageFields(label string) []form.Field {
	return []form.Field{{Name: imageField, Label: label, Type: form.ImageInput, Accept: form.DefaultImageTypes}}
}

// Fashion classifies a clothing photo into the Fashion-MNIST classes.
func Fashion(opts ...Option) Definition {
	adapter := fashionAdapter
	adapter.MaxPixels = newSettings(opts).maxImagePixels
	return Definition{
		Name:        "fashion",
		Title:       "Fashion Classifier",
		Description: "Upload a clothing image; the model classifies it into one of ten Fashion-MNIST classes.",
		Fields:      imageFields("Upload Clothing Image"),
		Load: func(dir string) (Predictor, error) {
			return loadFashion(dir, adapter)
		},
	}
}

func loadFashion(dir string, adapter features.ImageAdapter) (Predictor, error) {
	path := filepath.Join(dir, ModelFile)
	model, err := ml.LoadNetwork(path, nil)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(model.Classes(), FashionClasses) {
		return nil, &ml.LoadError{Path: path, Err: fmt.Errorf("model classes %v do not match %v", model.Classes(), FashionClasses)}
	}
	return newImagePredictor(imageField, adapter, model, dir)
}

// Jellyfish identifies the species in a jellyfish photo.
func Jellyfish(opts ...Option) Definition {
	adapter := jellyfishAdapter
	adapter.MaxPixels = newSettings(opts).maxImagePixels
	return Definition{
		Name:        "jellyfish",
		Title:       "Jellyfish Species Classifier",
		Description: "Upload a jellyfish photo to identify its species.",
		Fields:      imageFields("Upload a Jellyfish Image"),
		Load: func(dir string) (Predictor, error) {
			return loadJellyfish(dir, adapter)
		},
	}
}

func loadJellyfish(dir string, adapter features.ImageAdapter) (Predictor, error) {
	labels, err := ml.LoadLabelEncoder(filepath.Join(dir, LabelsFile), "species")
	if err != nil {
		return nil, err
	}
	model, err := ml.LoadNetwork(filepath.Join(dir, ModelFile), labels)
	if err != nil {
		return nil, err
	}
	return newImagePredictor(imageField, adapter, model, dir)
}
