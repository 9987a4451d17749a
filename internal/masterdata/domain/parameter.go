package masterdata

import (
	"context"
	"errors"
)

// Parameter is a canonical measurable quantity. Name is the join key
// device readings are resolved against; ApexName is the vendor label
// shown on the controller UI, when one exists.
type Parameter struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ApexName *string `json:"apexName"`
}

// Validate checks parameter invariants.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return errors.New("parameter: empty name")
	}
	return nil
}

// ParameterRepository manages parameter persistence.
type ParameterRepository interface {
	List(ctx context.Context) ([]Parameter, error)
	Get(ctx context.Context, id int64) (*Parameter, error)
	Create(ctx context.Context, parameter *Parameter) (*Parameter, error)
	Update(ctx context.Context, id int64, parameter *Parameter) (*Parameter, error)
	Delete(ctx context.Context, id int64) error
}

// ParametersByName indexes parameters by canonical name.
func ParametersByName(parameters []Parameter) map[string]Parameter {
	index := make(map[string]Parameter, len(parameters))
	for _, parameter := range parameters {
		index[parameter.Name] = parameter
	}
	return index
}
