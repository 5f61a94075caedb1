package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/schema"
)

// Func adapts a pure check into a Validator. It never returns an error.
type Func func(data domain.StepData) map[string]string

func (f Func) Validate(_ context.Context, data domain.StepData) (domain.ValidationResult, error) {
	if errs := f(data); len(errs) > 0 {
		return domain.Invalid(errs), nil
	}
	return domain.Valid(), nil
}

// AsyncFunc adapts a check that may perform remote I/O.
type AsyncFunc func(ctx context.Context, data domain.StepData) (map[string]string, error)

func (f AsyncFunc) Validate(ctx context.Context, data domain.StepData) (domain.ValidationResult, error) {
	errs, err := f(ctx, data)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if len(errs) > 0 {
		return domain.Invalid(errs), nil
	}
	return domain.Valid(), nil
}

// Schema checks field types with a schema.Schema.
func Schema(s schema.Schema) domain.Validator {
	return Func(func(data domain.StepData) map[string]string {
		return schema.FieldErrors(schema.Validate(s, data))
	})
}

// Required reports every listed field that is missing or blank.
func Required(fields ...string) domain.Validator {
	return Func(func(data domain.StepData) map[string]string {
		errs := map[string]string{}
		for _, f := range fields {
			v, ok := data[f]
			if !ok || v == nil {
				errs[f] = "required"
				continue
			}
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				errs[f] = "required"
			}
		}
		return errs
	})
}

// All runs every validator and merges their field errors. The first field
// error for a key wins. Any infrastructure error aborts the chain.
func All(validators ...domain.Validator) domain.Validator {
	return AsyncFunc(func(ctx context.Context, data domain.StepData) (map[string]string, error) {
		merged := map[string]string{}
		for _, v := range validators {
			if v == nil {
				continue
			}
			res, err := v.Validate(ctx, data)
			if err != nil {
				return nil, err
			}
			for k, msg := range res.Errors {
				if _, seen := merged[k]; !seen {
					merged[k] = msg
				}
			}
			if !res.Valid && len(res.Errors) == 0 {
				merged[""] = "invalid"
			}
		}
		return merged, nil
	})
}

// Lookup reports whether a value is already taken.
type Lookup func(ctx context.Context, value string) (bool, error)

// Unique fails field with msg when lookup reports the value as taken.
// Missing or non-string values are left to other validators.
func Unique(field string, lookup Lookup, msg string) domain.Validator {
	return AsyncFunc(func(ctx context.Context, data domain.StepData) (map[string]string, error) {
		s, ok := data[field].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, nil
		}
		taken, err := lookup(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("uniqueness check for %s: %w", field, err)
		}
		if taken {
			return map[string]string{field: msg}, nil
		}
		return nil, nil
	})
}

// Fields is a field-level check: each function returns an error message or "".
type Fields map[string]func(value any) string

func (f Fields) Validate(_ context.Context, data domain.StepData) (domain.ValidationResult, error) {
	errs := map[string]string{}
	for field, check := range f {
		v, ok := data[field]
		if !ok {
			continue
		}
		if msg := check(v); msg != "" {
			errs[field] = msg
		}
	}
	if len(errs) > 0 {
		return domain.Invalid(errs), nil
	}
	return domain.Valid(), nil
}
