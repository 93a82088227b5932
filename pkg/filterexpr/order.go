package filterexpr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// OrderSchema whitelists the keys a caller may order by and names the
// default. Bound params structs must expose OrderKey (string) and
// OrderDesc (bool) fields; the key is mapped to a SQL expression by Keys.
type OrderSchema struct {
	DefaultKey  string
	DefaultDesc bool
	Keys        map[string]string
}

func bindOrder(dest reflect.Value, raw string, schema OrderSchema) error {
	if schema.DefaultKey == "" {
		return errors.New("order schema default key required")
	}
	expr, ok := schema.Keys[schema.DefaultKey]
	if !ok {
		return fmt.Errorf("default order key %q missing from schema", schema.DefaultKey)
	}
	desc := schema.DefaultDesc

	raw = strings.TrimSpace(raw)
	if raw != "" {
		parts := strings.Fields(raw)
		if len(parts) > 2 {
			return fmt.Errorf("invalid order segment %q", raw)
		}
		expr, ok = schema.Keys[parts[0]]
		if !ok {
			return fmt.Errorf("field %q cannot be used for ordering", parts[0])
		}
		desc = false
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				desc = true
			default:
				return fmt.Errorf("invalid direction %q", parts[1])
			}
		}
	}

	if err := assign(dest, "OrderKey", expr); err != nil {
		return err
	}
	return assign(dest, "OrderDesc", desc)
}
