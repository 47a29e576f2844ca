package spkconfig

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"
)

// envOverlay applies environment-variable overrides onto an
// already-YAML-unmarshaled struct: v.Abc may be replaced by
// PREFIX_ABC, v.Abc.Xyz by PREFIX_ABC_XYZ, and a map field's entries by
// PREFIX_ABC_<KEY>.
type envOverlay struct {
	prefix string
	env    map[string]string
}

func newEnvOverlay(prefix string) *envOverlay {
	o := &envOverlay{prefix: prefix, env: make(map[string]string)}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			o.env[parts[0]] = parts[1]
		}
	}
	return o
}

// apply overwrites v's fields in place from the process environment.
// v must be a pointer to a struct.
func (o *envOverlay) apply(v interface{}) error {
	return o.overwriteFields(reflect.ValueOf(v), o.prefix)
}

func (o *envOverlay) overwriteFields(v reflect.Value, prefix string) error {
	for v.Kind() == reflect.Ptr {
		v = reflect.Indirect(v)
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			sf := v.Type().Field(i)
			fieldPrefix := strings.ToUpper(prefix + "_" + sf.Name)
			if raw, ok := o.env[fieldPrefix]; ok {
				dest := reflect.New(sf.Type)
				if err := yaml.Unmarshal([]byte(raw), dest.Interface()); err != nil {
					return fmt.Errorf("spkconfig: env override %s: %w", fieldPrefix, err)
				}
				v.Field(i).Set(reflect.Indirect(dest))
			}
			if err := o.overwriteFields(v.Field(i), fieldPrefix); err != nil {
				return err
			}
		}
	case reflect.Map:
		o.overwriteMap(v, prefix)
	}
	return nil
}

func (o *envOverlay) overwriteMap(m reflect.Value, prefix string) {
	if m.IsNil() {
		return
	}
	pattern, err := regexp.Compile(fmt.Sprintf("^%s_([A-Z0-9]+)$", strings.ToUpper(prefix)))
	if err != nil {
		return
	}
	for key, raw := range o.env {
		submatches := pattern.FindStringSubmatch(key)
		if submatches == nil {
			continue
		}
		dest := reflect.New(m.Type().Elem())
		if yaml.Unmarshal([]byte(raw), dest.Interface()) != nil {
			continue
		}
		m.SetMapIndex(reflect.ValueOf(strings.ToLower(submatches[1])), reflect.Indirect(dest))
	}
}
