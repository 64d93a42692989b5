package params

import (
	"fmt"
	"reflect"
	"strings"
)

// Override assigns one field addressed by its yaml section and key, for example
// Override("stem", "range_end", 50.0). Dashes in the key are read as
// underscores so script keywords such as :range-end resolve. Numbers may
// be given as int or float64; bool fields also accept 0/1 and the strings
// "true" and "false".
func (s *Set) Override(section, key string, value any) error {
	sec, ok := field(reflect.ValueOf(s).Elem(), section)
	if !ok {
		return fmt.Errorf("params: unknown section %q", section)
	}
	f, ok := field(sec, strings.ReplaceAll(key, "-", "_"))
	if !ok {
		return fmt.Errorf("params: unknown key %s.%s", section, key)
	}
	if err := assign(f, value); err != nil {
		return fmt.Errorf("params: %s.%s: %w", section, key, err)
	}
	return nil
}

// Sections lists the yaml section names in declaration order.
func Sections() []string {
	t := reflect.TypeOf(Set{})
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		out = append(out, yamlName(t.Field(i)))
	}
	return out
}

func field(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if yamlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func yamlName(f reflect.StructField) string {
	tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	return tag
}

func assign(f reflect.Value, value any) error {
	switch f.Kind() {
	case reflect.Float64:
		switch v := value.(type) {
		case float64:
			f.SetFloat(v)
		case int:
			f.SetFloat(float64(v))
		case int64:
			f.SetFloat(float64(v))
		default:
			return fmt.Errorf("expected a number, got %T", value)
		}
	case reflect.Int:
		switch v := value.(type) {
		case int:
			f.SetInt(int64(v))
		case int64:
			f.SetInt(v)
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected an integer, got %g", v)
			}
			f.SetInt(int64(v))
		default:
			return fmt.Errorf("expected an integer, got %T", value)
		}
	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			f.SetBool(v)
		case int:
			f.SetBool(v != 0)
		case int64:
			f.SetBool(v != 0)
		case float64:
			f.SetBool(v != 0)
		case string:
			switch v {
			case "true":
				f.SetBool(true)
			case "false":
				f.SetBool(false)
			default:
				return fmt.Errorf("expected true or false, got %q", v)
			}
		default:
			return fmt.Errorf("expected a bool, got %T", value)
		}
	case reflect.String:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
		f.SetString(v)
	default:
		return fmt.Errorf("unsupported field kind %s", f.Kind())
	}
	return nil
}

// Lookup returns the value of one field addressed like Override.
func (s Set) Lookup(section, key string) (any, error) {
	sec, ok := field(reflect.ValueOf(s), section)
	if !ok {
		return nil, fmt.Errorf("params: unknown section %q", section)
	}
	f, ok := field(sec, strings.ReplaceAll(key, "-", "_"))
	if !ok {
		return nil, fmt.Errorf("params: unknown key %s.%s", section, key)
	}
	return f.Interface(), nil
}
