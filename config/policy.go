package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"loan-engine/financial"
)

// policyFile mirrors financial.Policy with amounts kept as strings so YAML
// never routes them through float64.
type policyFile struct {
	FlatProcessingFee     string `yaml:"flat_processing_fee"`
	FlatFeeCeiling        string `yaml:"flat_fee_ceiling"`
	ProcessingFeeRate     string `yaml:"processing_fee_rate"`
	QualificationRatio    string `yaml:"qualification_ratio"`
	MaxTenureMonths       int    `yaml:"max_tenure_months"`
	NPLThresholdDays      int    `yaml:"npl_threshold_days"`
	MaxLoanAmount         string `yaml:"max_loan_amount"`
	MaxAnnualInterestRate string `yaml:"max_annual_interest_rate"`
}

// LoadPolicyFromPath reads a YAML policy. Keys left out keep their
// financial.DefaultPolicy value.
func LoadPolicyFromPath(path string) (financial.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return financial.Policy{}, fmt.Errorf("failed to read policy: %w", err)
	}

	var raw policyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return financial.Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}

	p := financial.DefaultPolicy()
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"flat_processing_fee", raw.FlatProcessingFee, &p.FlatProcessingFee},
		{"flat_fee_ceiling", raw.FlatFeeCeiling, &p.FlatFeeCeiling},
		{"processing_fee_rate", raw.ProcessingFeeRate, &p.ProcessingFeeRate},
		{"qualification_ratio", raw.QualificationRatio, &p.QualificationRatio},
		{"max_loan_amount", raw.MaxLoanAmount, &p.MaxLoanAmount},
		{"max_annual_interest_rate", raw.MaxAnnualInterestRate, &p.MaxAnnualInterestRate},
	} {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return financial.Policy{}, fmt.Errorf("policy %s: %w", f.name, err)
		}
		*f.dst = d
	}
	if raw.MaxTenureMonths != 0 {
		p.MaxTenureMonths = raw.MaxTenureMonths
	}
	if raw.NPLThresholdDays != 0 {
		p.NPLThresholdDays = raw.NPLThresholdDays
	}

	if err := p.Validate(); err != nil {
		return financial.Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// LoadPolicyOrDefault returns the default policy when path is empty.
func LoadPolicyOrDefault(path string) (financial.Policy, error) {
	if path == "" {
		return financial.DefaultPolicy(), nil
	}
	return LoadPolicyFromPath(path)
}
