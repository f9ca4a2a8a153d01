package models

// LinkageMode selects deduplication within one source or linkage across two.
type LinkageMode string

const (
	LinkageModeIntra LinkageMode = "intra" // Deduplicate a single record collection
	LinkageModeInter LinkageMode = "inter" // Link a left and a right record collection
)

// BlockingStrategy names a partitioning strategy
type BlockingStrategy string

const (
	BlockingStrategyDisjunct BlockingStrategy = "disjunct" // Union of per-criterion bins
	BlockingStrategyNaive    BlockingStrategy = "naive"    // One bin, full cross product
)

// LinkageSpec declares a record linkage run
type LinkageSpec struct {
	Name                string           `json:"name,omitempty" yaml:"name,omitempty"`
	Mode                LinkageMode      `json:"mode" yaml:"mode" validate:"required,oneof=intra inter"`
	Blocking            BlockingSpec     `json:"blocking" yaml:"blocking"`
	Metrics             []MetricSpec     `json:"metrics" yaml:"metrics" validate:"dive"`
	Aggregator          string           `json:"aggregator,omitempty" yaml:"aggregator,omitempty"`
	AllowEmptyMetrics   bool             `json:"allow_empty_metrics,omitempty" yaml:"allow_empty_metrics,omitempty"`
	EmptyScore          float64          `json:"empty_score,omitempty" yaml:"empty_score,omitempty"`
	MissingPolicy       string           `json:"missing_policy,omitempty" yaml:"missing_policy,omitempty" validate:"omitempty,oneof=zero skip fail"`
	Threshold           float64          `json:"threshold" yaml:"threshold"`
	IDProjection        IDProjectionSpec `json:"id_projection,omitempty" yaml:"id_projection,omitempty"`
	DuplicateProjection string           `json:"duplicate_projection,omitempty" yaml:"duplicate_projection,omitempty"`
	Workers             int              `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"`
}

// BlockingSpec declares the blocking criteria of each side. Inter-source
// linkage without right criteria uses the left criteria on both sides.
type BlockingSpec struct {
	Strategy BlockingStrategy `json:"strategy,omitempty" yaml:"strategy,omitempty" validate:"omitempty,oneof=disjunct naive"`
	Left     []CriterionSpec  `json:"left,omitempty" yaml:"left,omitempty" validate:"dive"`
	Right    []CriterionSpec  `json:"right,omitempty" yaml:"right,omitempty" validate:"dive"`
}

// CriterionSpec is one blocking key definition
type CriterionSpec struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Fields      []string `json:"fields" yaml:"fields" validate:"required,min=1"`
	Normalizers []string `json:"normalizers,omitempty" yaml:"normalizers,omitempty"`
}

// MetricSpec is one (metric, left path, right path[, tolerance]) entry
type MetricSpec struct {
	Metric      string         `json:"metric" yaml:"metric" validate:"required"`
	Left        string         `json:"left" yaml:"left"`
	Right       string         `json:"right,omitempty" yaml:"right,omitempty"` // Defaults to left
	Tolerance   *float64       `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Params      map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Normalizers []string       `json:"normalizers,omitempty" yaml:"normalizers,omitempty"`
	Weight      float64        `json:"weight,omitempty" yaml:"weight,omitempty" validate:"gte=0"`
}

// IDProjectionSpec projects matched records to compact identifiers
type IDProjectionSpec struct {
	Left  *ProjectionSpec `json:"left,omitempty" yaml:"left,omitempty"`
	Right *ProjectionSpec `json:"right,omitempty" yaml:"right,omitempty"`
}

// ProjectionSpec selects a value by field path or JMESPath expression
type ProjectionSpec struct {
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}
