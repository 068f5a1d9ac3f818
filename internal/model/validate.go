package model

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// asValidationError flattens ozzo errors into the first failing field so the
// caller gets one actionable message.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		keys := make([]string, 0, len(errs))
		for k, v := range errs {
			if v != nil {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return nil
		}
		sort.Strings(keys)
		return &ValidationError{Field: keys[0], Message: errs[keys[0]].Error()}
	}
	return &ValidationError{Message: err.Error()}
}
