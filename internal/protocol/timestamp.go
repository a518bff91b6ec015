package protocol

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// amzDateLayout is the SigV4 amz-date format (spec §4.5 / §6).
const amzDateLayout = "20060102T150405Z"

const iso8601Layout = "2006-01-02T15:04:05Z"
const iso8601MillisLayout = "2006-01-02T15:04:05.000Z"
const rfc822Layout = time.RFC1123

// formatTimestamp renders v (expected time.Time) per the member's declared
// format (spec §4.3 "Date encoding").
func formatTimestamp(v shape.Value, format shape.TimestampFormat) string {
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	t = t.UTC()
	switch format {
	case shape.TimestampISO8601Millis:
		return t.Format(iso8601MillisLayout)
	case shape.TimestampRFC822:
		return t.Format(rfc822Layout)
	case shape.TimestampUnixSeconds:
		return strconv.FormatInt(t.Unix(), 10)
	case shape.TimestampISO8601:
		fallthrough
	default:
		return t.Format(iso8601Layout)
	}
}

// parseTimestamp accepts any ISO8601 variant, RFC1123, or unix seconds,
// per spec §4.3 "Decoder accepts all ISO8601 variants".
func parseTimestamp(raw string) (time.Time, error) {
	layouts := []string{
		iso8601MillisLayout,
		iso8601Layout,
		time.RFC3339Nano,
		time.RFC3339,
		rfc822Layout,
		time.RFC1123Z,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		sec := int64(seconds)
		nsec := int64((seconds - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("protocol: unrecognized timestamp format %q", raw)
}

// encodeBlob base64-encodes a []byte member (spec §4.3 "Base64 blob
// fields").
func encodeBlob(v shape.Value) string {
	b, ok := v.([]byte)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// decodeBlob reverses encodeBlob.
func decodeBlob(raw string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(raw)
}
