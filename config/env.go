package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// loadFromEnv overlays environment variables onto cfg. Fields opt in with an
// `env` struct tag carrying the full variable name; nested sections are
// walked so each can declare its own tags.
func loadFromEnv(cfg *Config) error {
	return overlayEnv(reflect.ValueOf(cfg).Elem())
}

func overlayEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			if err := overlayEnv(field); err != nil {
				return err
			}
			continue
		}
		name, tagged := t.Field(i).Tag.Lookup("env")
		if !tagged {
			continue
		}
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// assign parses raw according to the field's type. Durations, comma lists
// and key=value maps get dedicated handling; plain scalars go through
// strconv.
func assign(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return fmt.Errorf("field is not settable")
	}
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", raw, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse bool %q: %w", raw, err)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse int %q: %w", raw, err)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse uint %q: %w", raw, err)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse float %q: %w", raw, err)
		}
		field.SetFloat(f)
	case reflect.Slice:
		return assignList(field, raw)
	case reflect.Map:
		return assignPairs(field, raw)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// assignList splits a comma-separated value into a string slice.
func assignList(field reflect.Value, raw string) error {
	t := field.Type()
	if t.Elem().Kind() != reflect.String {
		return fmt.Errorf("unsupported slice element %s", t.Elem().Kind())
	}
	parts := strings.Split(raw, ",")
	out := reflect.MakeSlice(t, 0, len(parts))
	for _, p := range parts {
		elem := reflect.ValueOf(strings.TrimSpace(p)).Convert(t.Elem())
		out = reflect.Append(out, elem)
	}
	field.Set(out)
	return nil
}

// assignPairs parses "k=v,k2=v2" into a string-to-string map.
func assignPairs(field reflect.Value, raw string) error {
	t := field.Type()
	if t.Key().Kind() != reflect.String || t.Elem().Kind() != reflect.String {
		return fmt.Errorf("unsupported map type %s", t)
	}
	out := reflect.MakeMap(t)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return fmt.Errorf("map entry %q is not key=value", pair)
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), reflect.ValueOf(v).Convert(t.Elem()))
	}
	field.Set(out)
	return nil
}
