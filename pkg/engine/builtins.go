package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/stemmount/pkg/params"
	zygo "github.com/glycerine/zygomys/zygo"
)

// registerBuiltins installs one function per parameter section, plus
// param for reading the current value of a field:
//
//	(stem :angle -12 :range-end 50)
//	(assembly :variant :sweep)
//	(param :stem :range-start)
//
// Section functions assign into res as they run, so later forms see the
// values set by earlier ones.
func registerBuiltins(env *zygo.Zlisp, res *Result) {
	for _, section := range params.Sections() {
		env.AddFunction(section, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if err := assignSection(res, section, args); err != nil {
				return zygo.SexpNull, err
			}
			return zygo.SexpNull, nil
		})
	}

	env.AddFunction("param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("param requires a section and a key, got %d arguments", len(args))
		}
		section, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: section: %w", err)
		}
		key, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: key: %w", err)
		}
		v, err := res.Params.Lookup(section, key)
		if err != nil {
			return zygo.SexpNull, err
		}
		return toSexp(v)
	})
}

// assignSection applies :key value pairs to one section.
func assignSection(res *Result, section string, args []zygo.Sexp) error {
	if len(args)%2 != 0 {
		return fmt.Errorf("%s: expected :key value pairs, got %d arguments", section, len(args))
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := isKW(args[i])
		if !ok {
			return fmt.Errorf("%s: argument %d: expected a keyword, got %s", section, i+1, args[i].SexpString(nil))
		}
		v, err := fromSexp(args[i+1])
		if err != nil {
			return fmt.Errorf("%s: %s: %w", section, key, err)
		}
		if err := res.Params.Override(section, key, v); err != nil {
			return err
		}
		res.Overrides = append(res.Overrides, Override{Section: section, Key: key, Value: v})
	}
	return nil
}

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// toKeywordString accepts a keyword (:stem) or a plain string ("stem").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// fromSexp converts a script value to the Go value params.Override takes.
// Keywords are read as their names.
func fromSexp(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		return strings.TrimPrefix(v.S, kwPrefix), nil
	}
	return nil, fmt.Errorf("expected a number, bool or string, got %T (%s)", s, s.SexpString(nil))
}

func toSexp(v any) (zygo.Sexp, error) {
	switch x := v.(type) {
	case float64:
		return &zygo.SexpFloat{Val: x}, nil
	case int:
		return &zygo.SexpInt{Val: int64(x)}, nil
	case bool:
		return &zygo.SexpBool{Val: x}, nil
	case string:
		return &zygo.SexpStr{S: x}, nil
	}
	return zygo.SexpNull, fmt.Errorf("unsupported parameter type %T", v)
}
