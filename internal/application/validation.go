package application

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)
	namePattern  = regexp.MustCompile(`^[\p{L}\s'.-]{2,50}$`)
)

// Validator checks a value before it is persisted under a well-known key.
type Validator func(value any) error

var errNilValue = errors.New("value must not be nil")

// keyValidators holds the rules for keys whose shape is known up front.
// Any other key only has to be non-nil.
var keyValidators = map[string]Validator{
	"userEmail": patternValidator(emailPattern, "a valid email address"),
	"userPhone": patternValidator(phonePattern, "a valid phone number"),
	"userName":  patternValidator(namePattern, "a valid name"),
	"authToken": nonEmptyString,
	"authUser":  nonNilObject,
}

func validateValue(key string, value any) error {
	if isNil(value) {
		return errNilValue
	}
	if v, ok := keyValidators[key]; ok {
		return v(value)
	}
	return nil
}

func patternValidator(re *regexp.Regexp, what string) Validator {
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("value is not %s", what)
		}
		return nil
	}
}

func nonEmptyString(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if s == "" {
		return errors.New("value must be a non-empty string")
	}
	return nil
}

func nonNilObject(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		return nil
	default:
		return fmt.Errorf("expected object, got %T", value)
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
