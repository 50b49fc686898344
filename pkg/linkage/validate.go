package linkage

import (
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Ramsey-B/clover/pkg/models"
)

// RecordValidator rejects restaurants that cannot be scored before they reach clustering.
type RecordValidator struct {
	validate *validator.Validate
}

// NewRecordValidator creates a validator for models.Restaurant.
func NewRecordValidator() *RecordValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &RecordValidator{validate: v}
}

// Validate returns a *ValidationError naming every blank required field.
func (v *RecordValidator) Validate(r models.Restaurant) error {
	err := v.validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{RecordID: r.ID, Fields: []string{err.Error()}}
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	sort.Strings(fields)
	return &ValidationError{RecordID: r.ID, Fields: fields}
}

// Filter splits rows into scorable rows, in their original order, and rejections.
func (v *RecordValidator) Filter(rows []models.Restaurant) ([]models.Restaurant, []*ValidationError) {
	valid := make([]models.Restaurant, 0, len(rows))
	var rejected []*ValidationError
	for _, r := range rows {
		if err := v.Validate(r); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				rejected = append(rejected, ve)
			}
			continue
		}
		valid = append(valid, r)
	}
	return valid, rejected
}
