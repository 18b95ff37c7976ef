package docstore

// Pressure is the co-runner pressure level a measurement was taken under.
type Pressure string

const (
	PressureSolo Pressure = "solo"
	PressureLow  Pressure = "low"
	PressureHigh Pressure = "high"
)

// RunType distinguishes whose IPC a measurement row records.
type RunType string

const (
	RunTypeWorkload RunType = "workload"
	RunTypeInjector RunType = "injector"
)

// SingleFeature is the sentinel feature name for the solo-baseline row
// (spec §6: "feature = \"single\" denotes the solo baseline").
const SingleFeature = "single"

// L3Feature is the sentinel feature name for the dedicated L3-co-run
// probe used to derive scale_factor.
const L3Feature = "l3co"

// MeasurementDoc is one row of the "measurement" bucket (spec §6): a
// single IPC reading for job_id under a given feature/pressure/run_type
// combination.
type MeasurementDoc struct {
	NodeName    string  `json:"node_name"`
	JobID       int64   `json:"job_id"`
	Feature     string  `json:"feature"`
	FeatureID   int     `json:"feature_id"`
	FeatureType string  `json:"feature_type"`
	Pressure    string  `json:"pressure"`
	RunType     string  `json:"run_type"`
	IPC         float64 `json:"ipc"`
	Timestamp   int64   `json:"timestamp"`
}

// CombinationDoc is one row of the "combination" bucket: a pairwise
// co-run measurement. Written by the offline trainer; the runtime only
// provides storage for it, never reads it back (spec §6).
type CombinationDoc struct {
	NodeName  string  `json:"node_name"`
	JobA      int64   `json:"job_a"`
	JobB      int64   `json:"job_b"`
	Feature   string  `json:"feature"`
	IPC_A     float64 `json:"ipc_a"`
	IPC_B     float64 `json:"ipc_b"`
	Timestamp int64   `json:"timestamp"`
}

// ModelDoc is the trained linear model (spec §4.4): an intercept, a
// feature-ordered coefficient list whose first entry is the "base" term
// and whose following entries correspond one-to-one with the resource
// catalog, in catalog order.
type ModelDoc struct {
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}
