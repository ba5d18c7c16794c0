// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuraiton files.
//
// Each Config is a pure description of an initialization scheme.
// Weight initializers are passed explicitly to the constructors of
// layers and distribution heads; nothing in this package holds global
// initializer state.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU    Type = "GlorotU"
	GlorotN    Type = "GlorotN"
	HeU        Type = "HeU"
	HeN        Type = "HeN"
	Zeroes     Type = "Zeroes"
	Ones       Type = "Ones"
	Constant   Type = "Constant"
	Gaussian   Type = "Gaussian"
	Uniform    Type = "Uniform"
	Orthogonal Type = "Orthogonal"
	NormC      Type = "NormC"
)

// configs maps each Type to the concrete Config that describes it
var configs = map[Type]reflect.Type{
	GlorotU:    reflect.TypeOf(GlorotUConfig{}),
	GlorotN:    reflect.TypeOf(GlorotNConfig{}),
	HeU:        reflect.TypeOf(HeUConfig{}),
	HeN:        reflect.TypeOf(HeNConfig{}),
	Zeroes:     reflect.TypeOf(ZeroesConfig{}),
	Ones:       reflect.TypeOf(OnesConfig{}),
	Constant:   reflect.TypeOf(ConstantConfig{}),
	Gaussian:   reflect.TypeOf(GaussianConfig{}),
	Uniform:    reflect.TypeOf(UniformConfig{}),
	Orthogonal: reflect.TypeOf(OrthogonalConfig{}),
	NormC:      reflect.TypeOf(NormCConfig{}),
}

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled. Marshalling produces {"Type": ..., "Config": {...}}.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// New returns the InitWFn described by c
func New(c Config) (*InitWFn, error) {
	if c == nil {
		return nil, fmt.Errorf("new: nil config")
	}
	return newInitWFn(c)
}

// newInitWFn validates c and creates the InitWFn it describes
func newInitWFn(c Config) (*InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new%v: %v", c.Type(), err)
	}

	return &InitWFn{initWFn: c.Create(), Type: c.Type(), Config: c}, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ty, ok := configs[raw.Type]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown InitWFn type %q", raw.Type)
	}

	value := reflect.New(ty)
	if len(raw.Config) > 0 && string(raw.Config) != "null" {
		if err := json.Unmarshal(raw.Config, value.Interface()); err != nil {
			return fmt.Errorf("unmarshalJSON: %v config: %v", raw.Type, err)
		}
	}

	init, err := newInitWFn(value.Elem().Interface().(Config))
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	*i = *init

	return nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type

	// Validate returns an error if the Config does not describe a
	// usable initializer
	Validate() error
}
