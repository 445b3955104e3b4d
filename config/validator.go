package config

import (
	"sync"

	"github.com/grovetools/overlay/schema"
)

var (
	validatorOnce sync.Once
	validatorInst *SchemaValidator
	validatorErr  error
)

// SchemaValidator validates raw configuration documents against the schema
// generated from Config.
type SchemaValidator struct {
	validator *schema.Validator
}

// NewSchemaValidator returns the shared validator, compiling the schema on
// first use.
func NewSchemaValidator() (*SchemaValidator, error) {
	validatorOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			validatorErr = err
			return
		}
		v, err := schema.NewValidator(data)
		if err != nil {
			validatorErr = err
			return
		}
		validatorInst = &SchemaValidator{validator: v}
	})
	return validatorInst, validatorErr
}

// Validate validates configuration data against the schema.
func (v *SchemaValidator) Validate(configData interface{}) error {
	return v.validator.Validate(configData)
}
