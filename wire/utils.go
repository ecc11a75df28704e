package wire

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Helpers to coerce caller values to the widths the codecs work in. Integer
// inputs of any Go kind are accepted and reinterpreted as two's complement,
// so a put masks rather than rejects, e.g. -1 into a vuint32 field gives
// 0xffffffff. JSON inputs (json.Number, integral float64, decimal strings)
// are accepted too.

func coerceToUint64(op string, v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint32:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case int32:
		return uint64(t), nil
	case int16:
		return uint64(t), nil
	case int8:
		return uint64(t), nil
	case int:
		return uint64(t), nil
	case json.Number:
		return parseIntegerString(op, t.String())
	case string:
		return parseIntegerString(op, t)
	case float64:
		return integralFloat(op, t)
	case float32:
		return integralFloat(op, float64(t))
	default:
		return 0, typeMismatch(op, "expected integer-like, got %T", v)
	}
}

func coerceToInt64(op string, v interface{}) (int64, error) {
	u, err := coerceToUint64(op, v)
	return int64(u), err
}

func parseIntegerString(op, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if uv, err := strconv.ParseUint(s, 10, 64); err == nil {
		return uv, nil
	}
	if iv, err := strconv.ParseInt(s, 10, 64); err == nil {
		return uint64(iv), nil
	}
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, typeMismatch(op, "%q is not a number", s)
		}
		return integralFloat(op, f)
	}
	return 0, typeMismatch(op, "%q is not an integer", s)
}

func integralFloat(op string, f float64) (uint64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, typeMismatch(op, "non-integer numeric %v for integer field", f)
	}
	if f < 0 {
		if f < math.MinInt64 {
			return 0, typeMismatch(op, "%v overflows 64 bits", f)
		}
		return uint64(int64(f)), nil
	}
	if f >= math.MaxUint64 {
		return 0, typeMismatch(op, "%v overflows 64 bits", f)
	}
	return uint64(f), nil
}

func coerceToFloat64(op string, v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, typeMismatch(op, "%q is not a number", t.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, typeMismatch(op, "%q is not a number", t)
		}
		return f, nil
	case int, int8, int16, int32, int64:
		i, err := coerceToInt64(op, t)
		return float64(i), err
	case uint, uint8, uint16, uint32, uint64:
		u, err := coerceToUint64(op, t)
		return float64(u), err
	default:
		return 0, typeMismatch(op, "expected float-like, got %T", v)
	}
}

// coerceToFloat32 keeps float32 inputs bit-exact; wider inputs are rounded
// to the nearest float32.
func coerceToFloat32(op string, v interface{}) (float32, error) {
	if f, ok := v.(float32); ok {
		return f, nil
	}
	f, err := coerceToFloat64(op, v)
	return float32(f), err
}

func coerceToBytes(op string, v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case [16]byte:
		return t[:], nil
	case [20]byte:
		return t[:], nil
	case [32]byte:
		return t[:], nil
	case *[16]byte:
		return t[:], nil
	case *[20]byte:
		return t[:], nil
	case *[32]byte:
		return t[:], nil
	default:
		return nil, typeMismatch(op, "expected bytes, got %T", v)
	}
}

func typeMismatch(op, format string, args ...interface{}) *Error {
	return newError(KindTypeMismatch, op, format, args...)
}
