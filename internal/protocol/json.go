package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// jsonCodec implements the `json` protocol: whole-input JSON body, target
// header, version-negotiated content type (spec §4.3 protocol table).
type jsonCodec struct{}

func (jsonCodec) ID() ID { return JSON }

func (jsonCodec) Encode(op, apiVersion, amzTarget, uriPathTemplate string, desc shape.Descriptor, input shape.Values) (EncodedRequest, error) {
	path, err := substituteURI(uriPathTemplate, desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}

	headers, err := encodeHeaders(desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}
	bodyValues := bodyOnly(desc, input)
	body, err := json.Marshal(valuesToJSON(bodyValues))
	if err != nil {
		return EncodedRequest{}, fmt.Errorf("protocol: json encode: %w", err)
	}
	if len(bodyValues) == 0 {
		body = []byte("{}")
	}

	contentType := "application/x-amz-json-1.1"
	if apiVersion == "" {
		contentType = "application/x-amz-json-1.0"
	}
	if amzTarget != "" {
		headers["X-Amz-Target"] = fmt.Sprintf("%s.%s", amzTarget, op)
	}
	headers["Content-Type"] = contentType

	return EncodedRequest{
		Headers:     headers,
		QueryString: encodeQueryString(desc, input, false),
		Body:        body,
		ContentType: contentType,
		URIPath:     path,
	}, nil
}

func (jsonCodec) Decode(resp DecodeInput, desc shape.Descriptor) (shape.Values, error) {
	return decodeJSONBodyAndHeaders(resp, desc)
}

func (jsonCodec) DecodeError(resp DecodeInput) (string, string, error) {
	var body struct {
		Type    string `json:"__type"`
		Message string `json:"message"`
		Msg     string `json:"Message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", "", fmt.Errorf("protocol: json error decode: %w", err)
	}
	msg := body.Message
	if msg == "" {
		msg = body.Msg
	}
	return shortErrorCode(body.Type), msg, nil
}

// restJSONCodec implements `restJson`: only body-located members (or the
// raw payload member) form the JSON body; everything else is
// header/query/uri.
type restJSONCodec struct{}

func (restJSONCodec) ID() ID { return RestJSON }

func (restJSONCodec) Encode(op, apiVersion, amzTarget, uriPathTemplate string, desc shape.Descriptor, input shape.Values) (EncodedRequest, error) {
	path, err := substituteURI(uriPathTemplate, desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}
	headers, err := encodeHeaders(desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}

	var body []byte
	contentType := "application/json"
	if pm, ok := desc.PayloadMember(); ok {
		switch pm.Kind {
		case shape.KindBlob:
			b, _ := input[pm.Label].([]byte)
			body = b
			contentType = "application/octet-stream"
		case shape.KindString:
			body = []byte(input.String(pm.Label))
			contentType = "text/plain"
		default:
			if nested, ok := input.Map(pm.Label); ok {
				body, err = json.Marshal(valuesToJSON(nested))
				if err != nil {
					return EncodedRequest{}, fmt.Errorf("protocol: json encode payload: %w", err)
				}
			}
		}
	} else {
		bodyValues := bodyOnly(desc, input)
		if len(bodyValues) > 0 {
			body, err = json.Marshal(valuesToJSON(bodyValues))
			if err != nil {
				return EncodedRequest{}, fmt.Errorf("protocol: json encode: %w", err)
			}
		}
	}
	if len(body) > 0 {
		headers["Content-Type"] = contentType
	}

	return EncodedRequest{
		Headers:     headers,
		QueryString: encodeQueryString(desc, input, false),
		Body:        body,
		ContentType: contentType,
		URIPath:     path,
	}, nil
}

func (restJSONCodec) Decode(resp DecodeInput, desc shape.Descriptor) (shape.Values, error) {
	return decodeJSONBodyAndHeaders(resp, desc)
}

func (restJSONCodec) DecodeError(resp DecodeInput) (string, string, error) {
	code := firstHeader(resp.Headers, "x-amzn-ErrorType")
	var body struct {
		Message string `json:"message"`
		Msg     string `json:"Message"`
	}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return shortErrorCode(code), "", fmt.Errorf("protocol: restJson error decode: %w", err)
		}
	}
	msg := body.Message
	if msg == "" {
		msg = body.Msg
	}
	return shortErrorCode(code), msg, nil
}

// bodyOnly returns the subset of members placed in the default body
// location (neither header, querystring, uri, payload, nor statusCode).
func bodyOnly(desc shape.Descriptor, input shape.Values) shape.Values {
	out := make(shape.Values)
	placed := make(map[string]bool)
	for _, m := range desc.Members {
		if m.Location != shape.LocationBody && m.Location != "" {
			placed[m.Label] = true
		}
	}
	if pm, ok := desc.PayloadMember(); ok {
		placed[pm.Label] = true
	}
	for _, m := range desc.Members {
		if placed[m.Label] {
			continue
		}
		if v, ok := input[m.Label]; ok {
			out[m.Label] = v
		}
	}
	return out
}

func valuesToJSON(v shape.Values) map[string]interface{} {
	out := make(map[string]interface{}, len(v))
	for k, val := range v {
		out[k] = jsonify(val)
	}
	return out
}

func jsonify(v shape.Value) interface{} {
	switch val := v.(type) {
	case shape.Values:
		return valuesToJSON(val)
	case []shape.Value:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = jsonify(item)
		}
		return out
	case []byte:
		return encodeBlob(val)
	default:
		return val
	}
}

func decodeJSONBodyAndHeaders(resp DecodeInput, desc shape.Descriptor) (shape.Values, error) {
	out := make(shape.Values)
	for _, m := range desc.ByLocation(shape.LocationHeader) {
		if raw := firstHeader(resp.Headers, m.Name); raw != "" {
			out[m.Label] = coerceHeaderValue(raw)
		}
	}
	for _, m := range desc.ByLocation(shape.LocationStatusCode) {
		out[m.Label] = int64(resp.StatusCode)
	}
	if len(resp.Body) == 0 {
		return out, nil
	}

	if pm, ok := desc.PayloadMember(); ok && pm.Kind != shape.KindStructure {
		switch pm.Kind {
		case shape.KindBlob:
			out[pm.Label] = resp.Body
		default:
			out[pm.Label] = string(resp.Body)
		}
		return out, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("protocol: json decode: %w", err)
	}
	for k, v := range raw {
		out[k] = fromJSON(v)
	}
	return out, nil
}

func fromJSON(v interface{}) shape.Value {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(shape.Values, len(val))
		for k, vv := range val {
			out[k] = fromJSON(vv)
		}
		return out
	case []interface{}:
		out := make([]shape.Value, len(val))
		for i, vv := range val {
			out[i] = fromJSON(vv)
		}
		return out
	default:
		return val
	}
}

func firstHeader(headers map[string][]string, name string) string {
	for k, vs := range headers {
		if equalFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// shortErrorCode strips a "#"-prefixed shape-namespace or trailing
// ":<http-status>" suffix some services add to the __type/ErrorType value.
func shortErrorCode(code string) string {
	for i := len(code) - 1; i >= 0; i-- {
		if code[i] == '#' {
			return code[i+1:]
		}
	}
	for i, c := range code {
		if c == ':' {
			return code[:i]
		}
	}
	return code
}
