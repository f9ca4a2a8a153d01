package models

// FusionRuleType names a registered fusion rule
type FusionRuleType string

const (
	FusionRuleMergeDistinct   FusionRuleType = "merge_distinct"   // Sorted distinct non-null values
	FusionRuleMostTrusted     FusionRuleType = "most_trusted"     // Highest-weight non-null value
	FusionRuleVote            FusionRuleType = "vote"             // Value with the greatest summed weight
	FusionRuleWeightedAverage FusionRuleType = "weighted_average" // Weighted mean of numbers
	FusionRuleLongest         FusionRuleType = "longest"          // Longest string value
	FusionRuleShortest        FusionRuleType = "shortest"         // Shortest string value
	FusionRuleMax             FusionRuleType = "max"              // Maximum numeric value
	FusionRuleMin             FusionRuleType = "min"              // Minimum numeric value
	FusionRuleSum             FusionRuleType = "sum"              // Sum of numeric values
	FusionRuleAverage         FusionRuleType = "average"          // Unweighted mean of numbers
	FusionRuleCollectAll      FusionRuleType = "collect_all"      // Non-null values in input order
	FusionRuleFirstNonNull    FusionRuleType = "first_non_null"   // First non-null value in input order
)

// FusionSpec declares how duplicate clusters are consolidated
type FusionSpec struct {
	Name    string              `json:"name,omitempty" yaml:"name,omitempty"`
	Default *RuleSpec           `json:"default,omitempty" yaml:"default,omitempty"`
	Fields  map[string]RuleSpec `json:"fields,omitempty" yaml:"fields,omitempty" validate:"dive"`
	Schema  []string            `json:"schema,omitempty" yaml:"schema,omitempty"` // Known field paths; empty disables the check
	Workers int                 `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"`
}

// RuleSpec selects a fusion rule and its parameters
type RuleSpec struct {
	Rule   FusionRuleType `json:"rule" yaml:"rule" validate:"required"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}
