package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	translator ut.Translator
	setupOnce  sync.Once
)

var customTags = map[string]struct {
	values []string
	text   string
}{
	"privacy_level": {
		values: []string{"public", "university_only", "private"},
		text:   "{0} must be one of public, university_only, private",
	},
	"decision": {
		values: []string{"approve", "reject"},
		text:   "{0} must be either approve or reject",
	},
	"signup_role": {
		values: []string{"student", "evaluator"},
		text:   "{0} must be either student or evaluator",
	},
}

// Setup registers English translations, JSON field names and the custom enum
// tags on gin's validator engine. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(v, translator)

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		for tag, def := range customTags {
			allowed := def.values
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				value := fl.Field().String()
				if value == "" {
					return true
				}
				for _, a := range allowed {
					if a == value {
						return true
					}
				}
				return false
			})
			registerTranslation(v, tag, def.text)
		}
	})
}

func registerTranslation(v *validator.Validate, tag, text string) {
	_ = v.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// FormatValidationError turns binding errors into a single readable sentence.
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			if translator != nil {
				messages = append(messages, fieldError.Translate(translator))
			} else {
				messages = append(messages, fieldError.Error())
			}
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}
