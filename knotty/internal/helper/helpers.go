package helper

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoValue is returned when a context carries no value for the requested key.
var ErrNoValue = errors.New("no value registered in context")

// GetTypedValueOf safely asserts the result of a getter function to the expected type T.
// Returns an error if the getter fails or the type assertion fails.
func GetTypedValueOf[T any](getFn func() (any, error)) (T, error) {
	var zero T

	res, err := getFn()
	if err != nil {
		return zero, fmt.Errorf("failed to get value: %w", err)
	}

	val, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type: %T", res)
	}

	return val, nil
}

// MustGetTypedValue is the panic-on-failure variant of GetTypedValueOf.
func MustGetTypedValue[T any](getFn func() (any, error)) T {
	res, err := GetTypedValueOf[T](getFn)
	if err != nil {
		panic(err)
	}
	return res
}

// ContextValue returns the typed value stored in ctx under key.
func ContextValue[T any](ctx context.Context, key any) (T, error) {
	return GetTypedValueOf[T](func() (any, error) {
		raw := ctx.Value(key)
		if raw == nil {
			return nil, fmt.Errorf("%w: %v", ErrNoValue, key)
		}
		return raw, nil
	})
}
