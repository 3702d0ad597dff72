package utils

import (
	"strings"
	"testing"

	"github.com/itchan-dev/anonboard/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextValidator(t *testing.T) {
	v := NewTextValidator(10, false)

	text, err := v.Text("hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	_, err = v.Text("")
	assert.True(t, errors.IsValidation(err))

	_, err = v.Text(strings.Repeat("я", 11))
	assert.True(t, errors.IsValidation(err), "length is counted in runes")

	text, err = v.Text(strings.Repeat("я", 10))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("я", 10), text)

	text, err = v.Text("<b>x</b>")
	require.NoError(t, err)
	assert.Equal(t, "<b>x</b>", text, "markup kept when sanitizing is off")
}

func TestTextValidatorSanitize(t *testing.T) {
	v := NewTextValidator(100, true)

	text, err := v.Text(`<script>alert(1)</script>hello <b>world</b>`)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	_, err = v.Text("<img src=x>")
	assert.True(t, errors.IsValidation(err), "text empty after sanitizing")
}

func TestPassword(t *testing.T) {
	v := NewTextValidator(10, false)
	assert.NoError(t, v.Password("p"))
	assert.True(t, errors.IsValidation(v.Password("")))
}
