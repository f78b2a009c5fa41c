package flags

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/jessevdk/go-flags"
)

// Parse parses os.Args and env into opts.
func Parse(opts any) error {
	return ParseArgs(opts, os.Args[1:])
}

// MustParse parses os.Args and env into opts, exiting on error.
func MustParse(opts any) {
	MustParseArgs(opts, os.Args[1:])
}

// MustParseArgs parses the given args into opts, exiting on error.
func MustParseArgs(opts any, args []string) {
	if err := ParseArgs(opts, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ParseArgs parses the given args into opts. A request for help prints usage
// and exits the process.
func ParseArgs(opts any, args []string) error {
	if err := parseSecrets(opts); err != nil {
		return fmt.Errorf("parsing secrets: %w", err)
	}
	if _, err := flags.ParseArgs(opts, args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return fmt.Errorf("parsing flags: %w", err)
	}
	return nil
}

// Parses secrets into any field which uses the `secret` tag. Nested pointer
// groups are allocated and recursed into.
func parseSecrets(obj any) error {
	v := reflect.Indirect(reflect.ValueOf(obj))
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)
		if !field.IsExported() {
			continue
		}
		secretFilepath, ok := field.Tag.Lookup("secret")
		if !ok {
			if value.Kind() != reflect.Ptr || value.Type().Elem().Kind() != reflect.Struct {
				continue
			}
			if value.IsNil() {
				value.Set(reflect.New(value.Type().Elem()))
			}
			if err := parseSecrets(value.Interface()); err != nil {
				return fmt.Errorf("%s: %w", field.Name, err)
			}
			continue
		}
		bytes, err := os.ReadFile(secretFilepath)
		if err != nil {
			return fmt.Errorf("reading secret @%s: %w", secretFilepath, err)
		}
		var vaultSecret struct{ Data any }
		vaultSecret.Data = value.Addr().Interface()
		if err := json.Unmarshal(bytes, &vaultSecret); err != nil {
			return fmt.Errorf("unmarshaling secret @%s: %w", secretFilepath, err)
		}
	}
	return nil
}
