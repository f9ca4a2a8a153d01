package value

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Key returns a canonical encoding of v. Two values produce the same key
// exactly when they are structurally equal, so keys can index maps.
func Key(v any) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

// Fingerprint is the hex sha256 of the canonical encoding.
func Fingerprint(v any) string {
	hash := sha256.Sum256([]byte(Key(v)))
	return hex.EncodeToString(hash[:])
}

func writeCanonical(sb *strings.Builder, v any) {
	switch KindOf(v) {
	case KindMissing:
		sb.WriteString("~")
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		if deref(v).Bool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindNumber:
		f, _ := ToFloat64(deref(v).Interface())
		sb.WriteString("#")
		sb.WriteString(formatNumber(f))
	case KindString:
		s, _ := ToString(v)
		quoted, _ := json.Marshal(s)
		sb.Write(quoted)
	case KindArray:
		sb.WriteString("[")
		for i, item := range arrayItems(v) {
			if i > 0 {
				sb.WriteString(",")
			}
			writeCanonical(sb, item)
		}
		sb.WriteString("]")
	case KindObject:
		fields := objectFields(v)
		sb.WriteString("{")
		for i, k := range sortedKeys(fields) {
			if i > 0 {
				sb.WriteString(",")
			}
			quoted, _ := json.Marshal(k)
			sb.Write(quoted)
			sb.WriteString(":")
			writeCanonical(sb, fields[k])
		}
		sb.WriteString("}")
	}
}
