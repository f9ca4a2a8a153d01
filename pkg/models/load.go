package models

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and cross-field rules
func (s *LinkageSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return ferrors.WrapConfigError(err).AddComponent("linkage")
	}
	if s.Blocking.Strategy != BlockingStrategyNaive && len(s.Blocking.Left) == 0 {
		return ferrors.NewConfigError("blocking.left needs at least one criterion").AddComponent("linkage")
	}
	if s.Mode == LinkageModeIntra && len(s.Blocking.Right) > 0 {
		return ferrors.NewConfigError("blocking.right is only used for inter-source linkage").AddComponent("linkage")
	}
	for _, p := range []*ProjectionSpec{s.IDProjection.Left, s.IDProjection.Right} {
		if p != nil && p.Path != "" && p.Expression != "" {
			return ferrors.NewConfigError("a projection takes a path or an expression, not both").AddComponent("linkage")
		}
	}
	return nil
}

// Validate checks struct tags
func (s *FusionSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return ferrors.WrapConfigError(err).AddComponent("fusion")
	}
	return nil
}

// Validate checks the request envelope and any inline spec
func (r *BatchRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return ferrors.WrapConfigError(err).AddComponent("batch")
	}
	if r.Linkage != nil {
		if err := r.Linkage.Validate(); err != nil {
			return err
		}
		if r.Linkage.Mode == LinkageModeIntra && len(r.RightRecords) > 0 {
			return ferrors.NewConfigError("right_records are only used for inter-source linkage").AddComponent("batch")
		}
	}
	if r.Fusion != nil {
		if err := r.Fusion.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseLinkageSpec decodes a YAML or JSON linkage spec and validates it
func ParseLinkageSpec(data []byte) (*LinkageSpec, error) {
	var spec LinkageSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, ferrors.NewConfigErrorf("invalid linkage spec: %w", err).AddComponent("linkage")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ParseFusionSpec decodes a YAML or JSON fusion spec and validates it
func ParseFusionSpec(data []byte) (*FusionSpec, error) {
	var spec FusionSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, ferrors.NewConfigErrorf("invalid fusion spec: %w", err).AddComponent("fusion")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadLinkageSpec reads a linkage spec file
func LoadLinkageSpec(path string) (*LinkageSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read linkage spec %s: %w", path, err)
	}
	return ParseLinkageSpec(data)
}

// LoadFusionSpec reads a fusion spec file
func LoadFusionSpec(path string) (*FusionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fusion spec %s: %w", path, err)
	}
	return ParseFusionSpec(data)
}

// ValidateStruct checks the struct tags of an API request body
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return ferrors.WrapConfigError(err).AddComponent("request")
	}
	return nil
}
