package lake

import (
	"fmt"
	"path"
	"strings"
)

// DefaultPartition names the directory for null or empty partition values.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// needsEscape reports characters that Hive escapes in partition directory names.
func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}

// EscapePartitionValue percent-encodes a partition value for use in a path.
func EscapePartitionValue(v string) string {
	if v == "" {
		return DefaultPartition
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// PartitionPath builds "k1=v1/k2=v2" for the given keys and values.
func PartitionPath(keys, values []string) string {
	if len(keys) == 0 {
		return ""
	}
	segs := make([]string, len(keys))
	for i, k := range keys {
		segs[i] = EscapePartitionValue(k) + "=" + EscapePartitionValue(values[i])
	}
	return path.Join(segs...)
}
