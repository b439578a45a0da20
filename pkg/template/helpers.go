package template

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ohler55/ojg/jp"
)

func helperUUID(ctx *Context) string {
	if ctx.Rand == nil {
		return uuid.New().String()
	}
	// Seeded renders need deterministic identifiers, so build a v4 UUID
	// from the context's source instead of crypto/rand.
	var b [16]byte
	for i := range b {
		b[i] = byte(ctx.intN(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

func helperTimestampUnix() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

func helperTimestampUnixMilli() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func helperTimestampRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func helperTimestampFormat(layout string) string {
	return time.Now().UTC().Format(layout)
}

func helperRandomInt(ctx *Context, lo, hi int) (string, error) {
	return strconv.Itoa(lo + ctx.intN(hi-lo+1)), nil
}

func helperRandomFloat(ctx *Context, lo, hi float64, precision int) (string, error) {
	v := lo + ctx.float64n()*(hi-lo)
	return strconv.FormatFloat(v, 'f', precision, 64), nil
}

func helperRandomFloatArgs(expr string, m []string, ctx *Context) (string, error) {
	lo, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", badArguments(expr, "min is not a number")
	}
	hi, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return "", badArguments(expr, "max is not a number")
	}
	if hi < lo {
		return "", badArguments(expr, "max below min")
	}
	precision := 2
	if m[3] != "" {
		precision, _ = strconv.Atoi(m[3])
		if precision > 17 {
			precision = 17
		}
	}
	return helperRandomFloat(ctx, lo, hi, precision)
}

const randomStringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func helperRandomString(ctx *Context, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randomStringAlphabet[ctx.intN(len(randomStringAlphabet))]
	}
	return string(b)
}

func helperCounter(expr string, m []string, ctx *Context) (string, error) {
	if ctx.State == nil {
		return "", badArguments(expr, "no scenario state available")
	}
	start := int64(1)
	if m[2] != "" {
		parsed, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return "", badArguments(expr, "start is not an integer")
		}
		start = parsed
	}
	return strconv.FormatInt(ctx.State.IncrementFrom("counter:"+m[1], start), 10), nil
}

func helperStateLookup(expr, key string, ctx *Context) (string, error) {
	if ctx.State == nil {
		return "", badArguments(expr, "no scenario state available")
	}
	value, ok := ctx.State.Get(key)
	if !ok {
		return "", badArguments(expr, "unknown state key "+strconv.Quote(key))
	}
	return stringify(value)
}

// helperBodyField extracts a field from a JSON request body by dotted
// path, e.g. request.body.user.name.
func helperBodyField(expr, field string, ctx *Context) (string, error) {
	var data any
	if err := json.Unmarshal(ctx.Body, &data); err != nil {
		return "", badArguments(expr, "request body is not valid JSON")
	}
	path, err := jp.ParseString("$." + field)
	if err != nil {
		return "", badArguments(expr, "invalid body path")
	}
	results := path.Get(data)
	if len(results) == 0 {
		return "", badArguments(expr, "body field "+strconv.Quote(field)+" not found")
	}
	return stringify(results[0])
}

func helperBase64(value string) string {
	return base64.StdEncoding.EncodeToString([]byte(value))
}

func helperURLEncode(value string) string {
	return url.QueryEscape(value)
}

// helperJSON recursively serializes a structured value.
func helperJSON(expr string, value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", badArguments(expr, "value is not serializable")
	}
	return string(encoded), nil
}

// stringify renders a value for direct substitution: strings verbatim,
// everything else as JSON.
func stringify(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: value is not serializable", ErrBadArguments)
	}
	return string(encoded), nil
}
