package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// emailRe accepts local@domain.tld where no part contains whitespace or '@'.
// Whitespace covers the Unicode space separators as well as ASCII.
var emailRe = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

var (
	validateOnce sync.Once
	validate     *validatorv10.Validate
)

// customTags are registered on the shared validator.
var customTags = map[string]validatorv10.Func{
	"notblank_trim": func(fl validatorv10.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	},
	"basic_email": func(fl validatorv10.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	},
}

// mustValidator builds a validator with tags registered. A registration
// error is a programming mistake, so it panics like regexp.MustCompile.
func mustValidator(tags map[string]validatorv10.Func) *validatorv10.Validate {
	v := validatorv10.New()
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("services: register validation %q: %v", tag, err))
		}
	}
	return v
}

// validatorInstance returns the shared validator with the custom tags registered.
func validatorInstance() *validatorv10.Validate {
	validateOnce.Do(func() { validate = mustValidator(customTags) })
	return validate
}

type feedbackInput struct {
	Name    string `validate:"notblank_trim"`
	Email   string `validate:"notblank_trim,basic_email"`
	Message string `validate:"notblank_trim"`
}

type chatInput struct {
	Message string `validate:"notblank_trim"`
}

// ValidateFeedback checks that every field is present and the email is
// well-formed. A missing field wins over a bad email.
func ValidateFeedback(sub domain.FeedbackSubmission) error {
	err := validatorInstance().Struct(feedbackInput{
		Name:    sub.Name,
		Email:   sub.Email,
		Message: sub.Message,
	})
	if err == nil {
		return nil
	}

	var ves validatorv10.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	for _, fe := range ves {
		if fe.Tag() == "notblank_trim" {
			return ErrMissingField
		}
	}
	return ErrInvalidEmail
}

// ValidateChat checks that the chat message is not blank.
func ValidateChat(message string) error {
	if err := validatorInstance().Struct(chatInput{Message: message}); err != nil {
		var ves validatorv10.ValidationErrors
		if errors.As(err, &ves) {
			return ErrMissingMessage
		}
		return err
	}
	return nil
}
