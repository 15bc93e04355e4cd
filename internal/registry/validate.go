package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"webtlo/internal/services"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateBatch checks every entry before any write. The first invalid entry
// fails the whole batch with ErrValidation.
func validateBatch[T any](operation string, items []T) error {
	v := structValidator()
	for i := range items {
		err := v.Struct(&items[i])
		if err == nil {
			continue
		}
		return services.Wrap(services.ErrValidation, "registry", operation,
			fmt.Sprintf("entry %d: %s", i, describeValidation(err)), nil)
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
