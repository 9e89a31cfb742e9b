package enums

import "fmt"

// Environment selects which provider endpoint family is in use.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

var validEnvironments = []Environment{
	EnvironmentSandbox,
	EnvironmentProduction,
}

// String implements fmt.Stringer.
func (e Environment) String() string {
	return string(e)
}

// IsValid reports whether the value is known.
func (e Environment) IsValid() bool {
	for _, candidate := range validEnvironments {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEnvironment converts raw input into an Environment.
func ParseEnvironment(value string) (Environment, error) {
	for _, candidate := range validEnvironments {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid environment %q", value)
}
