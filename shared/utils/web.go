package utils

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/anonboard/shared/errors"
	"github.com/itchan-dev/anonboard/shared/logger"
)

const maxFormSize = 1 << 20

var (
	validate    = newValidator()
	formDecoder = form.NewDecoder()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match what clients send
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WriteErrorAndStatusCode writes client errors as is and hides everything else behind a 500.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	var e *errors.ErrorWithStatusCode
	if stderrors.As(err, &e) {
		http.Error(w, e.Message, e.StatusCode)
		return
	}
	// default error is 500
	logger.Log.Error("internal error", "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func WritePlain(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	io.WriteString(w, text)
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid json body", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	return Validate(body)
}

// DecodeRequest fills body from a JSON or form encoded request body and validates it.
func DecodeRequest(r *http.Request, body any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		// read the body directly: ParseForm ignores bodies of DELETE requests
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxFormSize))
		if err != nil {
			return &errors.ErrorWithStatusCode{Message: "Body is unreadable", StatusCode: http.StatusBadRequest}
		}
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			logger.Log.Debug("invalid form body", "error", err)
			return &errors.ErrorWithStatusCode{Message: "Body is invalid form", StatusCode: http.StatusBadRequest}
		}
		return decodeValidateValues(values, body)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormSize); err != nil {
			logger.Log.Debug("invalid multipart body", "error", err)
			return &errors.ErrorWithStatusCode{Message: "Body is invalid form", StatusCode: http.StatusBadRequest}
		}
		return decodeValidateValues(r.MultipartForm.Value, body)
	default:
		return DecodeValidate(r.Body, body)
	}
}

// DecodeQuery fills body from the URL query and validates it.
func DecodeQuery(r *http.Request, body any) error {
	return decodeValidateValues(r.URL.Query(), body)
}

func decodeValidateValues(values map[string][]string, body any) error {
	if err := decodeValues(values, body); err != nil {
		return err
	}
	return Validate(body)
}

// decodeValues maps form fields onto the form-tagged fields of body.
func decodeValues(values map[string][]string, body any) error {
	if err := formDecoder.Decode(body, url.Values(values)); err != nil {
		logger.Log.Debug("invalid form fields", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body has invalid fields", StatusCode: http.StatusBadRequest}
	}
	return nil
}

func Validate(body any) error {
	err := validate.Struct(body)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, fe.Field())
		}
		return &errors.ErrorWithStatusCode{
			Message:    "Required fields missing: " + strings.Join(missing, ", "),
			StatusCode: http.StatusBadRequest,
		}
	}
	return fmt.Errorf("validate request: %w", err)
}
