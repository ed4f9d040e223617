package delegation

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy is returned when a policy cannot drive the engine.
var ErrInvalidPolicy = errors.New("invalid escalation policy")

// Policy carries the parts of the delegation matrix that are a judgment call
// rather than a fixed threshold.
type Policy struct {
	Reference string `json:"reference"`
	Version   string `json:"version"`
	// RiskPoleBCTEscalation is where a BCT class above 1 goes once the dossier
	// reached the Risk Pole. The note is read either as DGA or as Committee.
	RiskPoleBCTEscalation Level `json:"risk_pole_bct_escalation"`
}

// DefaultPolicy returns the NO-2026/0001 reading used by the training screens.
func DefaultPolicy() Policy {
	return Policy{
		Reference:             "NO-2026/0001",
		Version:               "2026-01-21",
		RiskPoleBCTEscalation: DeputyGeneralManager,
	}
}

// Validate checks that every configurable route moves strictly upward.
func (p Policy) Validate() error {
	switch p.RiskPoleBCTEscalation {
	case DeputyGeneralManager, Committee:
		return nil
	default:
		return fmt.Errorf("%w: risk pole BCT escalation must be DGA or COMITE, got %s", ErrInvalidPolicy, p.RiskPoleBCTEscalation)
	}
}

type policyFile struct {
	Reference             string `yaml:"reference"`
	Version               string `yaml:"version"`
	RiskPoleBCTEscalation string `yaml:"risk_pole_bct_escalation"`
}

// ParsePolicyYAML decodes a policy document. Omitted keys keep their
// DefaultPolicy value.
func ParsePolicyYAML(data []byte) (Policy, error) {
	policy := DefaultPolicy()
	if len(bytes.TrimSpace(data)) == 0 {
		return policy, nil
	}
	var raw policyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	if v := strings.TrimSpace(raw.Reference); v != "" {
		policy.Reference = v
	}
	if v := strings.TrimSpace(raw.Version); v != "" {
		policy.Version = v
	}
	if v := strings.TrimSpace(raw.RiskPoleBCTEscalation); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return Policy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		policy.RiskPoleBCTEscalation = level
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// LoadPolicy reads a YAML policy from disk.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	policy, err := ParsePolicyYAML(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return policy, nil
}
