package service

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
	maxNameLength    = 100
	maxEmailLength   = 254
)

var (
	upperRe = regexp.MustCompile(`[A-Z]`)
	lowerRe = regexp.MustCompile(`[a-z]`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// RegisterInput is the register request payload
type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name"`
}

// Validate will validate the payload
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, maxEmailLength), validation.By(emailAddress)),
		validation.Field(&in.Password,
			validation.Required,
			validation.Length(minPasswordLength, 0),
			validation.By(maxBytes(maxPasswordBytes)),
			validation.Match(upperRe).Error("must contain an upper-case letter"),
			validation.Match(lowerRe).Error("must contain a lower-case letter"),
			validation.Match(digitRe).Error("must contain a digit"),
		),
		validation.Field(&in.PasswordConfirm, validation.Required, validation.By(ValidateStringEquals(in.Password))),
		validation.Field(&in.Name, validation.Length(0, maxNameLength)),
	)
}

// LoginInput is the login request payload
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate only checks presence. Format errors would leak which factor is wrong.
func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// ValidateStringEquals checks that a value equals str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func emailAddress(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != strings.TrimSpace(s) || addr.Name != "" {
		return errors.New("must be a valid email address")
	}
	return nil
}

func maxBytes(n int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if len(s) > n {
			return errors.New("is too long")
		}
		return nil
	}
}

// fieldErrors flattens ozzo validation errors into a field -> message map
func fieldErrors(err error) (map[string]string, bool) {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil, false
	}
	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		fields[field] = fieldErr.Error()
	}
	return fields, true
}

func validationFailed(err error) error {
	fields, ok := fieldErrors(err)
	if !ok {
		return core.NewError(core.KindValidation, "invalid request", err)
	}
	return &core.Error{
		Kind:    core.KindValidation,
		Message: "validation failed",
		Fields:  fields,
		Err:     err,
	}
}
