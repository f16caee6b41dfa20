package helpers

import (
	"reflect"

	"github.com/pkg/errors"
)

// Typeof resolves the type of $v as a string
func Typeof(v interface{}) string {
	t := reflect.TypeOf(v)

	if t.Kind() == reflect.Ptr {
		return "*" + t.Elem().Name()
	}

	return t.Name()
}

var (
	// ErrInvalidMention gets returned when a mention argument could not
	// be resolved to anything on the current guild
	ErrInvalidMention = errors.New("invalid mention")
)
