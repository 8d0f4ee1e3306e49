package apps

import (
	"path/filepath"

	"modeldemos/features"
	"modeldemos/form"
	"modeldemos/ml"
)

// houseColumns is the training column order. The scaler was fit on the whole
// row.
var houseColumns = []features.Column{
	features.Numeric("bedrooms"),
	features.Numeric("bathrooms"),
	features.Numeric("sqft_living"),
	features.Numeric("floors"),
	features.Numeric("waterfront"),
	features.Numeric("view"),
	features.Numeric("condition"),
	features.Numeric("grade"),
	features.Numeric("sqft_above"),
	features.Numeric("sqft_basement"),
	features.Numeric("yr_built"),
	features.Numeric("yr_renovated"),
	features.Numeric("year"),
	features.Numeric("month"),
	features.Numeric("day"),
}

var houseFields = []form.Field{
	{Name: "bedrooms", Label: "Bedrooms", Type: form.NumberInput, Min: form.Bound(0), Max: form.Bound(20), Step: 1, Integer: true, Default: "3"},
	{Name: "bathrooms", Label: "Bathrooms", Type: form.NumberInput, Min: form.Bound(0), Max: form.Bound(20), Step: 0.25, Default: "2.0"},
	{Name: "sqft_living", Label: "Sqft Living Area", Type: form.NumberInput, Min: form.Bound(0), Step: 1, Default: "1500"},
	{Name: "floors", Label: "Floors", Type: form.NumberInput, Min: form.Bound(0), Step: 0.5, Default: "1.0"},
	{Name: "waterfront", Label: "Waterfront", Type: form.SelectInput, Options: []string{"0", "1"}, NumericOptions: true, Default: "0"},
	{Name: "view", Label: "View Rating", Type: form.RangeInput, Min: form.Bound(0), Max: form.Bound(4), Step: 1, Integer: true, Default: "0"},
	{Name: "condition", Label: "Condition", Type: form.RangeInput, Min: form.Bound(1), Max: form.Bound(5), Step: 1, Integer: true, Default: "3"},
	{Name: "grade", Label: "Grade", Type: form.RangeInput, Min: form.Bound(1), Max: form.Bound(13), Step: 1, Integer: true, Default: "7"},
	{Name: "sqft_above", Label: "Sqft Above", Type: form.NumberInput, Min: form.Bound(0), Step: 1, Default: "1200"},
	{Name: "sqft_basement", Label: "Sqft Basement", Type: form.NumberInput, Min: form.Bound(0), Step: 1, Default: "300"},
	{Name: "yr_built", Label: "Year Built", Type: form.NumberInput, Step: 1, Integer: true, Default: "2000"},
	{Name: "yr_renovated", Label: "Year Renovated (0 if not)", Type: form.NumberInput, Min: form.Bound(0), Step: 1, Integer: true, Default: "0"},
	{Name: "year", Label: "Year Sold", Type: form.NumberInput, Step: 1, Integer: true, Default: "2015"},
	{Name: "month", Label: "Month Sold", Type: form.NumberInput, Min: form.Bound(1), Max: form.Bound(12), Step: 1, Integer: true, Default: "6"},
	{Name: "day", Label: "Day Sold", Type: form.NumberInput, Min: form.Bound(1), Max: form.Bound(31), Step: 1, Integer: true, Default: "15"},
}

// House predicts a house price from a model trained on log price.
func House() Definition {
	return Definition{
		Name:        "house",
		Title:       "House Price Prediction",
		Description: "Predict house price using a gradient boosted regression model.",
		Fields:      houseFields,
		Load:        loadHouse,
	}
}

func loadHouse(dir string) (Predictor, error) {
	model, err := ml.LoadRegressor(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, err
	}
	adapter, err := loadTabular(dir, houseFields, houseColumns, model.FeatureNames(), false, true)
	if err != nil {
		return nil, err
	}
	return &regressionPredictor{
		adapter:   adapter,
		model:     model,
		logTarget: true,
		caption:   "Estimated House Price",
		currency:  "₹ ",
	}, nil
}
