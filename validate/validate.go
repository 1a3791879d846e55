package validate

import (
	"errors"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var validate *validator.Validate

var translator ut.Translator

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ErrInvalid matches, through errors.Is, every error returned by Check.
var ErrInvalid = errors.New("validation failed")

type invalidError struct {
	msg string
}

func (e *invalidError) Error() string { return e.msg }

func (e *invalidError) Is(target error) bool { return target == ErrInvalid }

func init() {

	validate = validator.New()

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)

	register("ethaddr", "{0} must be a valid ethereum address", func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	})

	register("slug", "{0} must contain lowercase letters, digits and dashes", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})
}

func register(tag string, msg string, fn validator.Func) {
	validate.RegisterValidation(tag, fn)
	validate.RegisterTranslation(tag, translator,
		func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}

func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return &invalidError{err.Error()}
		}

		if len(verrors) < 1 {
			return nil
		}

		return &invalidError{verrors[0].Translate(translator)}
	}

	return nil
}

func GenerateID() string {
	return uuid.NewString()
}

func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("ID is not in its proper form")
	}
	return nil
}

func IsSlug(s string) bool {
	return slugRe.MatchString(s)
}
