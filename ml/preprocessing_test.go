package ml

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"modeldemos/apps/apptest"
)

func TestFitStandardScaler(t *testing.T) {
	rows := [][]float64{{1, 10}, {3, 10}}
	scaler, err := FitStandardScaler([]string{"a", "b"}, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := scaler.Transform([]float64{3, 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a: mean 2, std 1; b is constant and passes through centred
	if out[0] != 1 || out[1] != 0 {
		t.Fatalf("unexpected scaled values %v", out)
	}
}

func TestScalerTransformIsPure(t *testing.T) {
	scaler, err := NewScaler(StandardScaling, []string{"x", "y"}, []float64{1, 2}, []float64{2, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := []float64{5, 6}
	first, _ := scaler.Transform(in)
	second, _ := scaler.Transform(in)
	if in[0] != 5 || in[1] != 6 {
		t.Fatalf("input was modified: %v", in)
	}
	for i := range first {
		if math.Float64bits(first[i]) != math.Float64bits(second[i]) {
			t.Fatalf("transform is not deterministic: %v vs %v", first, second)
		}
	}
	if first[0] != 2 || first[1] != 1 {
		t.Fatalf("unexpected scaled values %v", first)
	}
}

func TestMinMaxScalerFile(t *testing.T) {
	f := scalerFile{Kind: MinMaxScaling, Columns: []string{"x"}, Min: []float64{10}, Max: []float64{20}}
	scaler, err := f.build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := scaler.Transform([]float64{15})
	if out[0] != 0.5 {
		t.Fatalf("expected 0.5, got %v", out[0])
	}
}

func TestScalerLengthMismatch(t *testing.T) {
	scaler, _ := NewScaler(StandardScaling, []string{"x"}, []float64{0}, []float64{1})
	_, err := scaler.Transform([]float64{1, 2})
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

// assertRoundTrip checks that every class decodes back to itself.
func assertRoundTrip(t *testing.T, enc *LabelEncoder) {
	t.Helper()
	for i, class := range enc.Classes() {
		idx, err := enc.Transform(class)
		if err != nil || idx != i {
			t.Fatalf("%s: expected %q at %d, got %d (%v)", enc.Column(), class, i, idx, err)
		}
		back, err := enc.InverseTransform(idx)
		if err != nil || back != class {
			t.Fatalf("%s: expected %q, got %q (%v)", enc.Column(), class, back, err)
		}
	}
}

func TestAppEncodersRoundTrip(t *testing.T) {
	root := t.TempDir()
	apptest.WriteCar(t, filepath.Join(root, "car"))
	apptest.WriteLoan(t, filepath.Join(root, "loan"))

	for _, app := range []string{"car", "loan"} {
		encoders, err := LoadEncoders(filepath.Join(root, app, "encoders.json"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(encoders) == 0 {
			t.Fatalf("%s: no encoders loaded", app)
		}
		for _, enc := range encoders {
			assertRoundTrip(t, enc)
		}
	}
}

func TestLabelEncoder(t *testing.T) {
	enc, err := FitLabelEncoder("fuel", []string{"Petrol", "Diesel", "Petrol", "Hybrid"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := enc.Classes(); len(got) != 3 || got[0] != "Diesel" || got[2] != "Petrol" {
		t.Fatalf("unexpected classes %v", got)
	}
	if idx, err := enc.Transform("Petrol"); err != nil || idx != 2 {
		t.Fatalf("expected 2, got %d (%v)", idx, err)
	}
	assertRoundTrip(t, enc)
	if _, err := enc.InverseTransform(enc.Len()); err == nil {
		t.Fatal("expected error for an index past the last class")
	}

	_, err = enc.Transform("Electric")
	var unknown *UnknownCategoryError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownCategoryError, got %v", err)
	}
	if unknown.Column != "fuel" || unknown.Value != "Electric" {
		t.Fatalf("unexpected error fields %+v", unknown)
	}

	if _, err := NewLabelEncoder("fuel", []string{"a", "a"}); err == nil {
		t.Fatal("expected error for duplicate classes")
	}
}
