package domain

import (
	"fmt"
	"strings"
)

// TemperatureUnit selects the unit series and displays are produced in.
// Stored readings are always Celsius.
type TemperatureUnit uint8

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
)

func (u TemperatureUnit) String() string {
	if u == Fahrenheit {
		return "F"
	}
	return "C"
}

// Symbol returns the display suffix, e.g. "°C".
func (u TemperatureUnit) Symbol() string {
	return "°" + u.String()
}

// ParseUnit accepts "C", "F", "celsius" and "fahrenheit" in any case.
func ParseUnit(s string) (TemperatureUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	default:
		return Celsius, fmt.Errorf("unknown temperature unit %q", s)
	}
}

func (u TemperatureUnit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *TemperatureUnit) UnmarshalText(b []byte) error {
	v, err := ParseUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Convert maps a Celsius reading into u.
func (u TemperatureUnit) Convert(celsius float64) float64 {
	if u == Fahrenheit {
		return ToFahrenheit(celsius)
	}
	return celsius
}

// ToFahrenheit converts Celsius to Fahrenheit: F = C * 9/5 + 32.
func ToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// ToCelsius converts Fahrenheit to Celsius.
func ToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
