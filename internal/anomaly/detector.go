package anomaly

// Verdict is the outcome of Detector.Detect for the first feature value.
type Verdict struct {
	Anomalous bool
	Score     float64
	Offset    float64
}

// Detector flags a feature summary by fitting a fresh forest on its values,
// each coefficient taken as an independent one-dimensional sample, and
// reading back the prediction for the first coefficient. The forest is
// fit and scored on the same values; there is no reference distribution.
type Detector struct {
	Config Config
}

// NewDetector returns a Detector that builds its forests from cfg.
func NewDetector(cfg Config) *Detector { return &Detector{Config: cfg} }

// Detect fits a forest on features and reports the verdict for features[0].
// It needs at least two values.
func (d *Detector) Detect(features []float64) (Verdict, error) {
	X := make([][]float64, len(features))
	for i, v := range features {
		X[i] = []float64{v}
	}

	f, err := NewForest(d.Config)
	if err != nil {
		return Verdict{}, err
	}
	pred, err := f.FitPredict(X)
	if err != nil {
		return Verdict{}, err
	}
	scores := f.ScoreSamples(X[:1])
	return Verdict{Anomalous: pred[0] == -1, Score: scores[0], Offset: f.Offset()}, nil
}
