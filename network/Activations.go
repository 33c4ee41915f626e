package network

import (
	"encoding/json"
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

type activationType string

const (
	relu     activationType = "relu"
	identity activationType = "identity"
	tanh     activationType = "tanh"
	sigmoid  activationType = "sigmoid"
)

// Activation represents an activation function type
type Activation struct {
	activationType
	f func(x *G.Node) (*G.Node, error)
}

// fwd performs the forward pass of an Activation
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String implements the Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether or not the Activation is the identity
// function.
func (a *Activation) IsIdentity() bool {
	return a.activationType == identity
}

// GobEncode implements the GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.activationType), nil
}

// GobDecode implements the GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	act, err := NewActivation(string(encoded))
	if err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}
	*a = *act
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (a *Activation) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (a *Activation) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	act, err := NewActivation(name)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	*a = *act
	return nil
}

// NewActivation returns the Activation with the given name
func NewActivation(name string) (*Activation, error) {
	switch activationType(strings.ToLower(name)) {
	case relu:
		return ReLU(), nil
	case identity:
		return Identity(), nil
	case tanh:
		return TanH(), nil
	case sigmoid:
		return Sigmoid(), nil
	default:
		return nil, fmt.Errorf("newActivation: illegal activation type %q",
			name)
	}
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
	}
}

// ReLU returns a ReLU *Activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
	}
}

// TanH returns a tanh *Activation
func TanH() *Activation {
	return &Activation{
		activationType: tanh,
		f:              G.Tanh,
	}
}

// Sigmoid returns a sigmoid *Activation
func Sigmoid() *Activation {
	return &Activation{
		activationType: sigmoid,
		f:              G.Sigmoid,
	}
}
