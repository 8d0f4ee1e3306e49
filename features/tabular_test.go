package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modeldemos/ml"
)

var carLikeColumns = []Column{
	Categorical("model"),
	Numeric("mileage"),
	Categorical("fuel"),
	Numeric("age"),
}

func carLikeAdapter(t *testing.T) *TabularAdapter {
	t.Helper()
	model, err := ml.NewLabelEncoder("model", []string{"Fiesta", "Focus", "Kuga"})
	require.NoError(t, err)
	fuel, err := ml.NewLabelEncoder("fuel", []string{"Diesel", "Petrol"})
	require.NoError(t, err)
	scaler, err := ml.NewScaler(ml.StandardScaling, []string{"mileage", "age"}, []float64{1000, 5}, []float64{500, 2})
	require.NoError(t, err)

	adapter, err := NewTabularAdapter(carLikeColumns,
		map[string]*ml.LabelEncoder{"model": model, "fuel": fuel},
		scaler,
		[]string{"model", "mileage", "fuel", "age"},
	)
	require.NoError(t, err)
	return adapter
}

func TestTabularAdapterOrderAndScaling(t *testing.T) {
	adapter := carLikeAdapter(t)
	record := NewRecord().
		SetCategory("model", "Kuga").
		SetNumber("mileage", 2000).
		SetCategory("fuel", "Diesel").
		SetNumber("age", 3)

	vector, err := adapter.Transform(record)
	require.NoError(t, err)
	assert.Len(t, vector, adapter.Width())
	assert.Equal(t, []float64{2, 2, 0, -1}, vector)

	again, err := adapter.Transform(record)
	require.NoError(t, err)
	assert.Equal(t, vector, again)
}

func TestTabularAdapterErrors(t *testing.T) {
	adapter := carLikeAdapter(t)

	_, err := adapter.Transform(NewRecord().SetCategory("model", "Kuga").SetNumber("mileage", 1))
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "fuel", missing.Field)

	_, err = adapter.Transform(NewRecord().
		SetCategory("model", "Mustang").
		SetNumber("mileage", 1).
		SetCategory("fuel", "Diesel").
		SetNumber("age", 1))
	var unknown *ml.UnknownCategoryError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "model", unknown.Column)
	assert.Equal(t, "Mustang", unknown.Value)
}

func TestNewTabularAdapterValidatesArtifacts(t *testing.T) {
	model, _ := ml.NewLabelEncoder("model", []string{"Fiesta"})
	fuel, _ := ml.NewLabelEncoder("fuel", []string{"Diesel"})
	extra, _ := ml.NewLabelEncoder("colour", []string{"red"})
	scaler, _ := ml.NewScaler(ml.StandardScaling, []string{"mileage", "age"}, []float64{0, 0}, []float64{1, 1})
	swapped, _ := ml.NewScaler(ml.StandardScaling, []string{"age", "mileage"}, []float64{0, 0}, []float64{1, 1})
	encoders := map[string]*ml.LabelEncoder{"model": model, "fuel": fuel}

	cases := map[string]func() error{
		"feature order": func() error {
			_, err := NewTabularAdapter(carLikeColumns, encoders, scaler, []string{"mileage", "model", "fuel", "age"})
			return err
		},
		"missing encoder": func() error {
			_, err := NewTabularAdapter(carLikeColumns, map[string]*ml.LabelEncoder{"model": model}, scaler, nil)
			return err
		},
		"extra encoder": func() error {
			_, err := NewTabularAdapter(carLikeColumns, map[string]*ml.LabelEncoder{"model": model, "fuel": fuel, "colour": extra}, scaler, nil)
			return err
		},
		"scaler order": func() error {
			_, err := NewTabularAdapter(carLikeColumns, encoders, swapped, nil)
			return err
		},
		"duplicate column": func() error {
			_, err := NewTabularAdapter([]Column{Numeric("a"), Numeric("a")}, nil, nil, nil)
			return err
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, build())
		})
	}
}

func TestTabularAdapterWithoutScaler(t *testing.T) {
	adapter, err := NewTabularAdapter([]Column{Numeric("a"), Numeric("b")}, nil, nil, nil)
	require.NoError(t, err)
	vector, err := adapter.Transform(NewRecord().SetNumber("a", 1.5).SetNumber("b", -2))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, vector)
}
