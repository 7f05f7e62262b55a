// Package props copies construction parameter bags onto wrapper structs.
//
// Every wrapper accepts an optional map of initial property values, the
// same bag a script passes to a constructor. Keys match exported fields by
// their `prop` tag or, failing that, case-insensitively by name.
package props

import (
	"reflect"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/go-drift/nativekit/pkg/errors"
)

// Bag is a set of initial property values.
type Bag map[string]any

// Apply decodes bag onto target, which must be a pointer to a struct.
// Unknown keys and values of the wrong type are rejected with an error
// wrapping errors.ErrInvalidArgument; target may be partially updated.
// Durations accept Go duration strings ("1.5s") or numbers of milliseconds,
// the unit scripts use.
func Apply(bag Bag, target any) error {
	if len(bag) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		TagName:     "prop",
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			millisToDurationHook,
		),
	})
	if err != nil {
		return errors.InvalidArgument("props.Apply", "", err.Error())
	}
	if err := dec.Decode(map[string]any(bag)); err != nil {
		return errors.InvalidArgument("props.Apply", "", err.Error())
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func millisToDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(reflect.ValueOf(data).Uint()) * time.Millisecond, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
	}
	return data, nil
}

// Keys returns the bag's keys in sorted order.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
