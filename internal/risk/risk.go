package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnavailable is returned when no model was loaded at startup.
var ErrUnavailable = errors.New("risk classifier unavailable")

// FeatureNames is the fixed input order of the diabetes classifier.
var FeatureNames = [NumFeatures]string{
	"pregnancies",
	"glucose",
	"blood_pressure",
	"skin_thickness",
	"insulin",
	"bmi",
	"diabetes_pedigree_function",
	"age",
}

const NumFeatures = 8

// FeatureVector holds one patient's inputs. Values() fixes the order passed to the model.
type FeatureVector struct {
	Pregnancies              float64 `json:"pregnancies" validate:"min=0,max=20"`
	Glucose                  float64 `json:"glucose" validate:"min=0,max=300"`
	BloodPressure            float64 `json:"blood_pressure" validate:"min=0,max=200"`
	SkinThickness            float64 `json:"skin_thickness" validate:"min=0,max=100"`
	Insulin                  float64 `json:"insulin" validate:"min=0,max=900"`
	BMI                      float64 `json:"bmi" validate:"min=0,max=70"`
	DiabetesPedigreeFunction float64 `json:"diabetes_pedigree_function" validate:"min=0,max=3"`
	Age                      float64 `json:"age" validate:"min=1,max=120"`
}

// Values returns the features in FeatureNames order.
func (f FeatureVector) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{
		f.Pregnancies,
		f.Glucose,
		f.BloodPressure,
		f.SkinThickness,
		f.Insulin,
		f.BMI,
		f.DiabetesPedigreeFunction,
		f.Age,
	}
}

// Label is the binary classifier output.
type Label int

const (
	NotDiabetic Label = 0
	Diabetic    Label = 1
)

func (l Label) String() string {
	if l == Diabetic {
		return "diabetic"
	}
	return "not diabetic"
}

// Message renders the label for display.
func (l Label) Message() string {
	if l == Diabetic {
		return "⚠️ The model predicts a high risk of diabetes. Please consult a doctor."
	}
	return "✅ The model predicts a low risk of diabetes."
}

// Classifier predicts a label from a feature vector.
type Classifier interface {
	Predict(FeatureVector) (Label, error)
}

// Model is a logistic-regression estimator exported from the training pipeline.
// It is read-only after Load and safe for concurrent use.
type Model struct {
	coefficients [NumFeatures]float64
	intercept    float64
	mean         [NumFeatures]float64
	scale        [NumFeatures]float64
	threshold    float64
}

func (m *Model) Predict(f FeatureVector) (Label, error) {
	if m == nil {
		return 0, ErrUnavailable
	}
	x := f.Values()
	z := m.intercept
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("feature %s is not a finite number", FeatureNames[i])
		}
		z += m.coefficients[i] * (v - m.mean[i]) / m.scale[i]
	}
	if sigmoid(z) >= m.threshold {
		return Diabetic, nil
	}
	return NotDiabetic, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
