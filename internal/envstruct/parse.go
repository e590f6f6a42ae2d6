// Package envstruct fills configuration structs from environment variables.
package envstruct

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var (
	ErrEnvNotSet    = errors.New("environment variable not set")
	ErrInvalidValue = errors.New("invalid value")
)

var durationType = reflect.TypeFor[time.Duration]()

// Populate sets the fields of the struct pointed to by v from the environment.
//
// lookupEnv has the signature of [os.LookupEnv] so that tests can inject their own environment. Each field tagged
// `env:"NAME"` is read from NAME, falling back to the `envDefault:"value"` tag. A field with neither a value nor a
// default yields ErrEnvNotSet. Supported field types are string, bool, int and time.Duration. All problems are
// collected and returned together.
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	ptr := reflect.ValueOf(v)
	if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: want pointer to struct, got %T", ErrInvalidValue, v)
	}
	target := ptr.Elem()

	var errs []error
	for i := range target.NumField() {
		field := target.Type().Field(i)
		name, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}
		raw, ok := lookupEnv(name)
		if !ok {
			if raw, ok = field.Tag.Lookup("envDefault"); !ok {
				errs = append(errs, fmt.Errorf("%w: %s", ErrEnvNotSet, name))
				continue
			}
		}
		if err := set(target.Field(i), raw); err != nil {
			errs = append(errs, fmt.Errorf("field %s from %s: %w", field.Name, name, err))
		}
	}

	return errors.Join(errs...)
}

func set(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return fmt.Errorf("%w: unexported field", ErrInvalidValue)
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() { //nolint:exhaustive // the rest are unsupported.
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		field.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		field.SetInt(int64(n))
	default:
		return fmt.Errorf("%w: unsupported kind %s", ErrInvalidValue, field.Kind())
	}
	return nil
}
