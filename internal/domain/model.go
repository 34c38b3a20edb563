package domain

// Model is the opaque pre-trained classifier artifact. Implementations are
// read-only after load and safe for concurrent use.
type Model interface {
	// FeatureNames returns the ordered feature columns the model expects.
	FeatureNames() []string

	// CategoricalFeatures returns the subset of columns holding categories.
	CategoricalFeatures() []string

	// PredictProbability returns the fraud probability in [0,1] for one
	// aligned feature row.
	PredictProbability(row map[string]any) (float64, error)
}
