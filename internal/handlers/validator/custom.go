package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/propertyhub/lease-planner/internal/contract"
	"github.com/propertyhub/lease-planner/internal/scrape"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9@._+-]*[a-zA-Z0-9])?$`)

func contractActionValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := contract.ParseAction(val)
	return err == nil
}

func contractStatusValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := contract.ParseStatus(val)
	return err == nil
}

func usernameValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return usernameRegex.MatchString(val)
}

func providerValidator(registry *scrape.Registry) func(fl validator.FieldLevel) bool {
	return func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := registry.SelectorsFor(scrape.ProviderIdentity(val))
		return err == nil
	}
}

func reasonCodeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return scrape.IsReason(val)
}
