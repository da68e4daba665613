package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPatient is returned when a patient profile fails validation
var ErrInvalidPatient = errors.New("invalid patient profile")

// PatientProfile is created per request and never persisted
type PatientProfile struct {
	Age      float64 `json:"age"`
	WeightKg float64 `json:"weight"`
	Sex      string  `json:"sex"`
	HeightCm float64 `json:"height,omitempty"` // 0 means not provided
	Route    string  `json:"route_admin"`
}

// IsMale reports the binary sex encoding used by the model
func (p PatientProfile) IsMale() bool {
	return strings.EqualFold(strings.TrimSpace(p.Sex), "male")
}

// IsOral reports the binary route encoding used by the model
func (p PatientProfile) IsOral() bool {
	return strings.EqualFold(strings.TrimSpace(p.Route), "oral")
}

// Validate checks the profile against the documented ranges
func (p PatientProfile) Validate() error {
	if p.Age <= 0 || p.Age > 130 {
		return fmt.Errorf("%w: age must be between 0 and 130, got %v", ErrInvalidPatient, p.Age)
	}
	if p.WeightKg <= 0 || p.WeightKg > 500 {
		return fmt.Errorf("%w: weight must be between 0 and 500 kg, got %v", ErrInvalidPatient, p.WeightKg)
	}
	if p.HeightCm < 0 || p.HeightCm > 300 {
		return fmt.Errorf("%w: height must be between 0 and 300 cm, got %v", ErrInvalidPatient, p.HeightCm)
	}
	switch strings.ToLower(strings.TrimSpace(p.Sex)) {
	case "male", "female":
	default:
		return fmt.Errorf("%w: sex must be male or female, got %q", ErrInvalidPatient, p.Sex)
	}
	if strings.TrimSpace(p.Route) == "" {
		return fmt.Errorf("%w: route_admin is required", ErrInvalidPatient)
	}
	return nil
}
