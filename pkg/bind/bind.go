// Package bind decodes a JSON request body into a struct and validates it.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/validate"
)

const defaultMaxBody = 4 << 20

func maxBodyBytes() int64 {
	if n := config.Int("MAX_BODY_BYTES", defaultMaxBody); n > 0 {
		return int64(n)
	}
	return defaultMaxBody
}

// Decode reads r.Body as JSON into dest, capped at MAX_BODY_BYTES.
func Decode(r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return nil
}

// JSON decodes and validates. It returns (errs, nil) on rule failures and
// (nil, err) when the body cannot be decoded.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	if err = Decode(r, dest); err != nil {
		return nil, err
	}

	errs = validate.Struct(dest)
	if validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
