package additem

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"fridge/models"
)

type manualEntryForm struct {
	Name           string  `form:"name" validate:"required"`
	Category       string  `form:"type" validate:"required"`
	ExpirationDate string  `form:"expirationDate" validate:"required,datetime=2006-01-02"`
	Quantity       int     `form:"servingCount" validate:"required,min=1"`
	ServingSize    float64 `form:"servingSize" validate:"omitempty,gt=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// normalizeDraft trims free-text fields.
func normalizeDraft(d models.DraftItem) models.DraftItem {
	d.Name = strings.TrimSpace(d.Name)
	d.Category = strings.TrimSpace(d.Category)
	d.ExpirationDate = strings.TrimSpace(d.ExpirationDate)
	d.Barcode = strings.TrimSpace(d.Barcode)
	return d
}

// submittable applies the category default and checks the fields every created
// item needs, whichever flow produced the draft.
func submittable(d models.DraftItem) (models.DraftItem, error) {
	d = normalizeDraft(d)
	if d.Category == "" {
		d.Category = defaultCategory
	}
	fields := make(map[string]string)
	if d.Name == "" {
		fields["name"] = fieldLabels["name"] + " is required"
	}
	if d.Quantity < 1 {
		fields["servingCount"] = fieldLabels["servingCount"] + " must be at least 1"
	}
	if len(fields) > 0 {
		return d, &ValidationError{Fields: fields}
	}
	return d, nil
}

// ValidateDraft checks a draft against the manual entry constraints.
func ValidateDraft(d models.DraftItem) error {
	form := manualEntryForm{
		Name:           strings.TrimSpace(d.Name),
		Category:       strings.TrimSpace(d.Category),
		ExpirationDate: strings.TrimSpace(d.ExpirationDate),
		Quantity:       d.Quantity,
		ServingSize:    d.ServingSize,
	}
	err := formValidator().Struct(form)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Fields: map[string]string{"form": err.Error()}}
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "datetime":
		return label + " must be a date (YYYY-MM-DD)"
	case "min":
		return label + " must be at least " + fe.Param()
	case "gt":
		return label + " must be greater than " + fe.Param()
	default:
		return label + " is invalid"
	}
}

var fieldLabels = map[string]string{
	"name":           "name",
	"type":           "category",
	"expirationDate": "expiration date",
	"servingCount":   "quantity",
	"servingSize":    "serving size",
}
