package config

import (
	"reflect"
	"strings"

	"github.com/spf13/pflag"
)

// setting is a config key that can be overridden from the command line or
// the environment: a string, int or bool, or a list of strings.
type setting struct {
	key   string // gateway.base_path
	usage string
	kind  reflect.Kind
}

// flagName is the command-line form of the key: gateway-base-path
func (s setting) flagName() string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(s.key)
}

// envName is the environment form of the key: READGATE_GATEWAY__BASE_PATH
func (s setting) envName() string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(s.key, ".", "__"))
}

// list reports whether the setting takes comma-separated values
func (s setting) list() bool {
	return s.kind == reflect.Slice
}

// settings lists every overridable key of Config, in declaration order.
// Lists of structs such as routes.readonly only come from config files.
var settings = collectSettings(reflect.TypeOf(Config{}), "")

func collectSettings(t reflect.Type, parent string) []setting {
	var out []setting
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if !field.IsExported() || tag == "" || tag == "-" {
			continue
		}

		key := tag
		if parent != "" {
			key = parent + "." + tag
		}

		switch kind := field.Type.Kind(); kind {
		case reflect.Struct:
			out = append(out, collectSettings(field.Type, key)...)
		case reflect.String, reflect.Int, reflect.Bool:
			out = append(out, setting{key: key, usage: field.Tag.Get("usage"), kind: kind})
		case reflect.Slice:
			if field.Type.Elem().Kind() == reflect.String {
				out = append(out, setting{key: key, usage: field.Tag.Get("usage"), kind: kind})
			}
		}
	}
	return out
}

// RegisterFlags adds one flag per setting to flagSet. Defaults stay zero:
// only flags the user changed override other sources. Flags already
// registered are left alone.
func RegisterFlags(flagSet *pflag.FlagSet) {
	for _, s := range settings {
		name := s.flagName()
		if flagSet.Lookup(name) != nil {
			continue
		}

		switch s.kind {
		case reflect.String:
			flagSet.String(name, "", s.usage)
		case reflect.Int:
			flagSet.Int(name, 0, s.usage)
		case reflect.Bool:
			flagSet.Bool(name, false, s.usage)
		case reflect.Slice:
			flagSet.StringSlice(name, nil, s.usage)
		}
	}
}

// flagKeys maps flag names to config keys
func flagKeys() map[string]string {
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.flagName()] = s.key
	}
	return out
}

// settingForEnv returns the setting an environment variable sets
func settingForEnv(name string) (setting, bool) {
	for _, s := range settings {
		if s.envName() == name {
			return s, true
		}
	}
	return setting{}, false
}
