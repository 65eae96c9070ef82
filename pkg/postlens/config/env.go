package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env files. Missing files are not an error.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// applyEnvOverrides sets every field tagged `env:"NAME"` whose variable is
// non-empty. Unparseable values are ignored and leave the field as is.
func applyEnvOverrides(cfg any) {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	applyEnvToStruct(v)
}

func applyEnvToStruct(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			applyEnvToStruct(field)
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		val := strings.TrimSpace(os.Getenv(name))
		if val == "" {
			continue
		}
		setFieldFromString(field, val)
	}
}

// setFieldFromString reports whether val was parsed and stored.
func setFieldFromString(field reflect.Value, val string) bool {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return false
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return false
		}
		field.SetFloat(f)
	case reflect.Bool:
		s := strings.ToLower(val)
		field.SetBool(s == "true" || s == "1" || s == "yes")
	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if !setFieldFromString(elem.Elem(), val) {
			return false
		}
		field.Set(elem)
	default:
		return false
	}
	return true
}
