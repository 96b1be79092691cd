package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tech17x/fizzyadmin-sub000/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeBody decodes a JSON request body into dst and validates it.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.BadRequestWrap(err, "request body too large")
		}
		return errors.BadRequestWrap(err, "malformed JSON body").WithDetails(err.Error())
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.ValidationWrap(err, "invalid request")
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.ValidationWrap(err, "invalid request").WithDetails(strings.Join(fields, "; "))
}
