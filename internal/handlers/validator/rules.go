package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/propertyhub/lease-planner/internal/scrape"
)

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewContractValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("contract_action", contractActionValidator),
		},
		{
			Rule: registerFn("contract_status", contractStatusValidator),
		},
		{
			Rule: registerFn("username", usernameValidator),
		},
	}
}

func NewScrapeJobValidationRules(registry *scrape.Registry) []ValidationRule {
	if registry == nil {
		registry = scrape.DefaultRegistry()
	}
	return []ValidationRule{
		{
			Rule: registerFn("provider", providerValidator(registry)),
		},
		{
			Rule: registerFn("reason_code", reasonCodeValidator),
		},
	}
}
