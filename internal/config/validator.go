package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// newValidator builds the struct validator used by the config loader.
// Validation errors name fields by their mapstructure key, so a bad config
// reports the key the user wrote rather than the Go field name.
func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("enTranslations.RegisterDefaultTranslations() > %w", err)
	}

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		key := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if key == "-" {
			return ""
		}
		return key
	})

	if err := registerFileRule(validate, trans); err != nil {
		return nil, nil, err
	}
	return validate, trans, nil
}

// registerFileRule adds the "file" rule used by the report template setting.
func registerFileRule(validate *validator.Validate, trans ut.Translator) error {
	if err := validate.RegisterValidation("file", isReadableFile); err != nil {
		return fmt.Errorf("validate.RegisterValidation(file) > %w", err)
	}
	err := validate.RegisterTranslation("file", trans,
		func(ut ut.Translator) error {
			return ut.Add("file", "{0} must be an existing and readable file", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			message, _ := ut.T("file", strings.TrimPrefix(fe.Namespace(), "Config."))
			return message
		})
	if err != nil {
		return fmt.Errorf("validate.RegisterTranslation(file) > %w", err)
	}
	return nil
}

func isReadableFile(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}
