package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyFromAny decodes a numeric column value. Hosted stores return numeric
// columns as strings, floats or driver-specific numeric types.
func MoneyFromAny(v any) (Money, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return t, nil
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero, nil
		}
		return *t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		if strings.TrimSpace(t) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(t))
	case []byte:
		return MoneyFromAny(string(t))
	case driver.Valuer:
		raw, err := t.Value()
		if err != nil {
			return decimal.Zero, fmt.Errorf("numeric value: %w", err)
		}
		if _, again := raw.(driver.Valuer); again {
			return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
		}
		return MoneyFromAny(raw)
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
	}
}

// Int64FromAny decodes an integer column value. Fractional values are
// rounded; some deployments store counts in numeric columns.
func Int64FromAny(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	d, err := MoneyFromAny(v)
	if err != nil {
		return 0, err
	}
	return d.Round(0).IntPart(), nil
}

// TimeFromAny decodes a date or timestamp column value.
func TimeFromAny(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, nil
		}
		return *t, nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised time %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported time type %T", v)
	}
}

// StringFromAny decodes a text column value.
func StringFromAny(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
