package apps

import (
	"path/filepath"

	"modeldemos/features"
	"modeldemos/form"
	"modeldemos/ml"
)

var carModels = []string{
	"Fiesta", "Focus", "Kuga", "EcoSport", "C-MAX", "Ka+", "Mondeo", "B-MAX",
	"S-MAX", "Grand C-MAX", "Galaxy", "Edge", "KA", "Puma", "Tourneo Custom",
	"Grand Tourneo Connect", "Mustang", "Tourneo Connect", "Fusion",
	"Streetka", "Ranger", "Escort", "Transit Tourneo",
}

var carColumns = []features.Column{
	features.Categorical("model"),
	features.Categorical("transmission"),
	features.Numeric("mileage"),
	features.Categorical("fuelType"),
	features.Numeric("tax"),
	features.Numeric("mpg"),
	features.Numeric("engineSize"),
	features.Numeric("car_age"),
}

var carFields = []form.Field{
	{Name: "model", Label: "Car Model", Type: form.SelectInput, Options: carModels, Default: "Fiesta"},
	{Name: "transmission", Label: "Transmission Type", Type: form.SelectInput, Options: []string{"Manual", "Automatic", "Semi-Auto"}, Default: "Manual"},
	{Name: "fuelType", Label: "Fuel Type", Type: form.SelectInput, Options: []string{"Petrol", "Diesel", "Hybrid", "Electric"}, Default: "Petrol"},
	{Name: "car_age", Label: "Car Age (in years)", Type: form.NumberInput, Min: form.Bound(0), Max: form.Bound(50), Step: 1, Integer: true, Default: "5"},
	{Name: "mileage", Label: "Mileage (in miles)", Type: form.NumberInput, Min: form.Bound(0), Step: 1000, Integer: true, Default: "0"},
	{Name: "tax", Label: "Tax", Type: form.NumberInput, Min: form.Bound(0), Step: 10, Integer: true, Default: "0"},
	{Name: "mpg", Label: "Miles Per Gallon (MPG)", Type: form.NumberInput, Min: form.Bound(0), Step: 0.01, Default: "0.00"},
	{Name: "engineSize", Label: "Engine Size (in litres)", Type: form.NumberInput, Min: form.Bound(0), Step: 0.1, Default: "0.0"},
}

// Car predicts the selling price of a used Ford.
func Car() Definition {
	return Definition{
		Name:        "car",
		Title:       "Ford Car Price Prediction",
		Description: "Provide the car details below and get an estimated selling price.",
		Fields:      carFields,
		Load:        loadCar,
	}
}

func loadCar(dir string) (Predictor, error) {
	model, err := ml.LoadRegressor(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, err
	}
	adapter, err := loadTabular(dir, carFields, carColumns, model.FeatureNames(), true, true)
	if err != nil {
		return nil, err
	}
	return &regressionPredictor{
		adapter: adapter,
		model:   model,
		caption: "Estimated Price",
	}, nil
}
