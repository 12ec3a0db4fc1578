package proofing

import (
	"fmt"
	"math/bits"
)

// IntegerConstraints bound the value an operator may enter for a resource
// or instance count.
type IntegerConstraints struct {
	Min       *int `yaml:"min,omitempty"`
	Max       *int `yaml:"max,omitempty"`
	ZeroOrMin *int `yaml:"zero_or_min,omitempty"`
	Modulo    *int `yaml:"modulo,omitempty"`

	PowerOfTwo         *bool `yaml:"power_of_two,omitempty"`
	MayOnlyIncrease    *bool `yaml:"may_only_increase,omitempty"`
	MayOnlyBeOddOrZero *bool `yaml:"may_only_be_odd_or_zero,omitempty"`
}

// IntegerConstraintsFromMap reads constraint keys from a loosely typed
// description. Unknown keys are ignored.
func IntegerConstraintsFromMap(m map[string]any) *IntegerConstraints {
	if len(m) == 0 {
		return nil
	}
	var c IntegerConstraints
	c.Min = intField(m, "min")
	c.Max = intField(m, "max")
	c.ZeroOrMin = intField(m, "zero_or_min")
	c.Modulo = intField(m, "modulo")
	c.PowerOfTwo = boolField(m, "power_of_two")
	c.MayOnlyIncrease = boolField(m, "may_only_increase")
	c.MayOnlyBeOddOrZero = boolField(m, "may_only_be_odd_or_zero")
	return &c
}

func (constraints IntegerConstraints) CheckValue(value int) error {
	checks := []func(int) error{
		ifSet(constraints.Min, func(min, v int) error {
			if v < min {
				return fmt.Errorf("value %d must be greater than or equal to %d", v, min)
			}
			return nil
		}),
		ifSet(constraints.Max, func(max, v int) error {
			if v > max {
				return fmt.Errorf("value %d must be less than or equal to %d", v, max)
			}
			return nil
		}),
		ifSet(constraints.MayOnlyBeOddOrZero, func(oddOrZero bool, v int) error {
			if oddOrZero && v != 0 && v%2 == 0 {
				return fmt.Errorf("value %d must be odd or zero", v)
			}
			return nil
		}),
		ifSet(constraints.ZeroOrMin, func(min, v int) error {
			if v != 0 && v < min {
				return fmt.Errorf("value %d must be zero or at least %d", v, min)
			}
			return nil
		}),
		ifSet(constraints.Modulo, func(mod, v int) error {
			if mod != 0 && v%mod != 0 {
				return fmt.Errorf("value %d must be a multiple of %d", v, mod)
			}
			return nil
		}),
		ifSet(constraints.PowerOfTwo, func(powerOfTwo bool, v int) error {
			if powerOfTwo && bits.OnesCount(uint(v)) > 1 {
				return fmt.Errorf("value %d must be a power of two", v)
			}
			return nil
		}),
	}
	for _, check := range checks {
		if err := check(value); err != nil {
			return err
		}
	}
	return nil
}

func ifSet[F any](field *F, fn func(F, int) error) func(int) error {
	if field == nil {
		return func(int) error { return nil }
	}
	return func(v int) error { return fn(*field, v) }
}

func intField(m map[string]any, key string) *int {
	switch v := m[key].(type) {
	case int:
		return &v
	case int64:
		n := int(v)
		return &n
	case float64:
		n := int(v)
		return &n
	}
	return nil
}

func boolField(m map[string]any, key string) *bool {
	if v, ok := m[key].(bool); ok {
		return &v
	}
	return nil
}
