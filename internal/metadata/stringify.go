package metadata

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Stringify renders a scalar metadata value as text.
func Stringify(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case uint64:
		return strconv.FormatUint(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'g', -1, 64)
	case time.Time:
		if vv.Hour() == 0 && vv.Minute() == 0 && vv.Second() == 0 && vv.Nanosecond() == 0 {
			return vv.Format(time.DateOnly)
		}
		return vv.Format(time.RFC3339)
	case []any:
		parts := make([]string, 0, len(vv))
		for _, item := range vv {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(vv)
	}
}

// flatten writes v into dst under key. Nested maps become dotted keys.
func flatten(dst map[string]string, key string, v any) {
	m, ok := v.(map[string]any)
	if !ok {
		dst[key] = Stringify(v)
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flatten(dst, key+"."+k, m[k])
	}
}
