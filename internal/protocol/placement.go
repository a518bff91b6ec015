package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// substituteURI replaces {name} and {name+} placeholders in tmpl from
// input per desc's uri-located members (spec §4.3 "uri"). {name+} retains
// "/" and percent-encodes everything else; {name} percent-encodes the
// whole segment.
func substituteURI(tmpl string, desc shape.Descriptor, input shape.Values) (string, error) {
	result := tmpl
	for _, m := range desc.ByLocation(shape.LocationURI) {
		value := stringify(input[m.Label], m)
		var encoded string
		if m.GreedyURI {
			encoded = encodeGreedyPathSegment(value)
			result = strings.ReplaceAll(result, "{"+m.Name+"+}", encoded)
		} else {
			encoded = url.PathEscape(value)
			result = strings.ReplaceAll(result, "{"+m.Name+"}", encoded)
		}
	}
	if strings.Contains(result, "{") {
		return "", fmt.Errorf("protocol: unresolved uri placeholder in %q", result)
	}
	return result, nil
}

// encodeGreedyPathSegment percent-encodes a path except for "/".
func encodeGreedyPathSegment(s string) string {
	parts := strings.Split(s, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// encodeHeaders writes header-located members as stringified header
// values, rejecting any value that is not a valid HTTP header field value
// (CR/LF injection guard, ahead of signing per spec §4.5's canonical
// header collapsing step).
func encodeHeaders(desc shape.Descriptor, input shape.Values) (map[string]string, error) {
	headers := make(map[string]string)
	for _, m := range desc.ByLocation(shape.LocationHeader) {
		if v, ok := input[m.Label]; ok && v != nil {
			val := stringify(v, m)
			if !httpguts.ValidHeaderFieldValue(val) {
				return nil, fmt.Errorf("protocol: invalid value for header %q", m.Name)
			}
			headers[m.Name] = val
		}
	}
	return headers, nil
}

// encodeQueryString writes querystring-located members into a flattened
// query parameter table (spec §4.3 "querystring").
func encodeQueryString(desc shape.Descriptor, input shape.Values, ec2 bool) map[string][]string {
	q := make(map[string][]string)
	for _, m := range desc.ByLocation(shape.LocationQueryString) {
		v, ok := input[m.Label]
		if !ok || v == nil {
			continue
		}
		flattenInto(q, m.Name, v, m.Flatten, ec2)
	}
	return q
}

// flattenInto implements spec §4.3 "Query flattening": lists become
// `k.member.N` (or `k.N` for ec2 when Flatten is set), maps become
// `k.entry.N.key`/`k.entry.N.value`.
func flattenInto(q map[string][]string, key string, v shape.Value, flatten, ec2 bool) {
	switch val := v.(type) {
	case []shape.Value:
		for i, item := range val {
			var itemKey string
			if flatten && ec2 {
				itemKey = fmt.Sprintf("%s.%d", key, i+1)
			} else {
				itemKey = fmt.Sprintf("%s.member.%d", key, i+1)
			}
			flattenInto(q, itemKey, item, false, ec2)
		}
	case shape.Values:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sortStrings(keys)
		for i, k := range keys {
			flattenInto(q, fmt.Sprintf("%s.entry.%d.key", key, i+1), k, false, ec2)
			flattenInto(q, fmt.Sprintf("%s.entry.%d.value", key, i+1), val[k], false, ec2)
		}
	default:
		q[key] = append(q[key], stringifyRaw(val))
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// stringify converts a member value to its wire string form, respecting
// declared timestamp format and blob base64 encoding.
func stringify(v shape.Value, m shape.Member) string {
	switch m.Kind {
	case shape.KindTimestamp:
		return formatTimestamp(v, m.Timestamp)
	case shape.KindBlob:
		return encodeBlob(v)
	default:
		return stringifyRaw(v)
	}
}

func stringifyRaw(v shape.Value) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// coerceHeaderValue implements spec §4.3 decoding rule for header-located
// output fields: "number -> int or float; true/false -> bool; otherwise
// string".
func coerceHeaderValue(raw string) shape.Value {
	if raw == "true" {
		return true
	}
	if raw == "false" {
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
