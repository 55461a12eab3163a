package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ToString renders a decoded JSON value as text. Missing values become "".
// Integral numbers are written without a fractional part so that an id
// stored as 10 and one stored as "10" compare equal.
func ToString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return v.String()
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToInt64 converts numbers and numeric strings. Fractions are truncated.
func ToInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int64", v.String())
		}
		return int64(f), nil
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int64", v)
		}
		return int64(f), nil
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", val)
	}
}

// ToInt64OrZero is ToInt64 for optional fields.
func ToInt64OrZero(val interface{}) int64 {
	i, err := ToInt64(val)
	if err != nil {
		return 0
	}
	return i
}

// ToInt64Ptr returns nil for null or unparseable values.
func ToInt64Ptr(val interface{}) *int64 {
	i, err := ToInt64(val)
	if err != nil {
		return nil
	}
	return &i
}

// ToFloat64Ptr returns nil for null or unparseable values.
func ToFloat64Ptr(val interface{}) *float64 {
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// ToFloat64 is ToFloat64Ptr with 0 for missing values.
func ToFloat64(val interface{}) float64 {
	if f := ToFloat64Ptr(val); f != nil {
		return *f
	}
	return 0
}

// MillisToTime converts epoch milliseconds into an instant in loc.
func MillisToTime(val interface{}, loc *time.Location) (time.Time, error) {
	ms, err := ToInt64(val)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc), nil
}
