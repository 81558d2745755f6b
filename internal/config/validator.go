package config

import (
	"github.com/go-playground/validator/v10"
	"nuyolo/internal/api/inference"
)

func NewValidator() (*validator.Validate, error) {
	validate := validator.New()
	if err := inference.RegisterValidations(validate); err != nil {
		return nil, err
	}
	return validate, nil
}
