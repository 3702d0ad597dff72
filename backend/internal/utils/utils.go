package utils

import (
	"fmt"
	"unicode/utf8"

	"github.com/itchan-dev/anonboard/shared/domain"
	"github.com/itchan-dev/anonboard/shared/errors"
	"github.com/microcosm-cc/bluemonday"
)

// TextValidator checks thread and reply bodies. With sanitize set, markup is
// stripped first and the cleaned text is what gets stored.
type TextValidator struct {
	maxLength int
	policy    *bluemonday.Policy
}

func NewTextValidator(maxLength int, sanitize bool) *TextValidator {
	v := &TextValidator{maxLength: maxLength}
	if sanitize {
		v.policy = bluemonday.StrictPolicy()
	}
	return v
}

func (v *TextValidator) Text(text domain.Text) (domain.Text, error) {
	if v.policy != nil {
		text = v.policy.Sanitize(text)
	}
	if len(text) == 0 {
		return "", errors.Validation("Text is too short")
	}
	if v.maxLength > 0 && utf8.RuneCountInString(text) > v.maxLength {
		return "", errors.Validation(fmt.Sprintf("Text is too long (max %d characters)", v.maxLength))
	}
	return text, nil
}

func (v *TextValidator) Password(password domain.Password) error {
	if len(password) == 0 {
		return errors.Validation("delete_password is required")
	}
	return nil
}
