package apps

import (
	"fmt"
	"path/filepath"

	"modeldemos/features"
	"modeldemos/form"
	"modeldemos/ml"
)

var loanColumns = []features.Column{
	features.Numeric("person_age"),
	features.Categorical("person_gender"),
	features.Categorical("person_education"),
	features.Numeric("person_income"),
	features.Numeric("person_emp_exp"),
	features.Categorical("person_home_ownership"),
	features.Numeric("loan_amnt"),
	features.Categorical("loan_intent"),
	features.Numeric("loan_int_rate"),
	features.Numeric("loan_percent_income"),
	features.Numeric("cb_person_cred_hist_length"),
	features.Numeric("credit_score"),
	features.Categorical("previous_loan_defaults_on_file"),
}

var loanFields = []form.Field{
	{Name: "person_age", Label: "Age", Type: form.RangeInput, Min: form.Bound(18), Max: form.Bound(70), Step: 1, Integer: true, Default: "30"},
	{Name: "person_gender", Label: "Gender", Type: form.SelectInput, Options: []string{"male", "female"}, Default: "male"},
	{Name: "person_education", Label: "Education", Type: form.SelectInput, Options: []string{"high_school", "bachelor", "master", "doctorate"}, Default: "high_school"},
	{Name: "person_income", Label: "Annual Income", Type: form.NumberInput, Min: form.Bound(0), Step: 1000, Default: "0"},
	{Name: "person_emp_exp", Label: "Employment Experience (Years)", Type: form.RangeInput, Min: form.Bound(0), Max: form.Bound(40), Step: 1, Integer: true, Default: "5"},
	{Name: "person_home_ownership", Label: "Home Ownership", Type: form.SelectInput, Options: []string{"RENT", "OWN", "MORTGAGE", "OTHER"}, Default: "RENT"},
	{Name: "loan_amnt", Label: "Loan Amount", Type: form.NumberInput, Min: form.Bound(1000), Step: 500, Default: "1000"},
	{Name: "loan_intent", Label: "Loan Intent", Type: form.SelectInput, Options: []string{"EDUCATION", "MEDICAL", "VENTURE", "PERSONAL", "DEBTCONSOLIDATION", "HOMEIMPROVEMENT"}, Default: "EDUCATION"},
	{Name: "loan_int_rate", Label: "Interest Rate (%)", Type: form.RangeInput, Min: form.Bound(0), Max: form.Bound(30), Step: 0.01, Default: "10.0"},
	{Name: "loan_percent_income", Label: "Loan % of Income", Type: form.RangeInput, Min: form.Bound(0), Max: form.Bound(1), Step: 0.01, Default: "0.25"},
	{Name: "cb_person_cred_hist_length", Label: "Credit History Length (Years)", Type: form.RangeInput, Min: form.Bound(0), Max: form.Bound(40), Step: 1, Integer: true, Default: "5"},
	{Name: "credit_score", Label: "Credit Score", Type: form.RangeInput, Min: form.Bound(300), Max: form.Bound(850), Step: 1, Integer: true, Default: "650"},
	{Name: "previous_loan_defaults_on_file", Label: "Previous Loan Default", Type: form.SelectInput, Options: []string{"Yes", "No"}, Default: "Yes"},
}

// Loan decides loan approval with a binary classifier.
func Loan() Definition {
	return Definition{
		Name:        "loan",
		Title:       "Loan Approval Prediction",
		Description: "Estimate whether a loan application would be approved.",
		Fields:      loanFields,
		Load:        loadLoan,
	}
}

func loadLoan(dir string) (Predictor, error) {
	path := filepath.Join(dir, ModelFile)
	model, err := ml.LoadClassifier(path)
	if err != nil {
		return nil, err
	}
	if n := len(model.Classes()); n != 2 {
		return nil, &ml.LoadError{Path: path, Err: fmt.Errorf("loan model must be binary, has %d classes", n)}
	}
	adapter, err := loadTabular(dir, loanFields, loanColumns, model.FeatureNames(), true, true)
	if err != nil {
		return nil, err
	}
	return &binaryPredictor{
		adapter:       adapter,
		model:         model,
		positiveLabel: "Loan Approved",
		negativeLabel: "Loan Rejected",
	}, nil
}
