package protocol

import (
	"fmt"
	"strings"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// xmlCodec implements `xml`: XML document with root = operation name.
type xmlCodec struct{}

func (xmlCodec) ID() ID { return XML }

func (xmlCodec) Encode(op, apiVersion, amzTarget, uriPathTemplate string, desc shape.Descriptor, input shape.Values) (EncodedRequest, error) {
	path, err := substituteURI(uriPathTemplate, desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}
	headers, err := encodeHeaders(desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}
	headers["Content-Type"] = "text/xml"
	return EncodedRequest{
		Headers:     headers,
		QueryString: encodeQueryString(desc, input, false),
		Body:        buildXMLElement(op, desc, input),
		ContentType: "text/xml",
		URIPath:     path,
	}, nil
}

func (xmlCodec) Decode(resp DecodeInput, desc shape.Descriptor) (shape.Values, error) {
	return decodeXMLUnwrapped(resp.Body, desc)
}

func (xmlCodec) DecodeError(resp DecodeInput) (string, string, error) {
	return decodeXMLError(resp.Body)
}

// restXMLCodec implements `restXml`: XML of body members (or raw
// payload), with location-aware header/query/uri placement.
type restXMLCodec struct{}

func (restXMLCodec) ID() ID { return RestXML }

func (restXMLCodec) Encode(op, apiVersion, amzTarget, uriPathTemplate string, desc shape.Descriptor, input shape.Values) (EncodedRequest, error) {
	path, err := substituteURI(uriPathTemplate, desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}
	headers, err := encodeHeaders(desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}

	var body []byte
	if pm, ok := desc.PayloadMember(); ok {
		switch pm.Kind {
		case shape.KindBlob:
			b, _ := input[pm.Label].([]byte)
			body = b
			headers["Content-Type"] = "application/octet-stream"
		case shape.KindString:
			body = []byte(input.String(pm.Label))
			headers["Content-Type"] = "text/plain"
		default:
			if nested, ok := input.Map(pm.Label); ok {
				body = buildXMLElement(pm.Name, desc, nested)
				headers["Content-Type"] = "text/xml"
			}
		}
	} else if bodyMembers := desc.ByLocation(shape.LocationBody); len(bodyMembers) > 0 {
		body = buildXMLElement(op, desc, input)
		headers["Content-Type"] = "text/xml"
	}

	return EncodedRequest{
		Headers:     headers,
		QueryString: encodeQueryString(desc, input, false),
		Body:        body,
		ContentType: headers["Content-Type"],
		URIPath:     path,
	}, nil
}

func (restXMLCodec) Decode(resp DecodeInput, desc shape.Descriptor) (shape.Values, error) {
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
	if pm, ok := desc.PayloadMember(); ok && pm.Kind == shape.KindBlob {
		out[pm.Label] = resp.Body
		return out, nil
	}

	decoded, err := decodeXMLUnwrapped(resp.Body, desc)
	if err != nil {
		return nil, err
	}
	for k, v := range decoded {
		out[k] = v
	}
	return out, nil
}

func (restXMLCodec) DecodeError(resp DecodeInput) (string, string, error) {
	return decodeXMLError(resp.Body)
}

// decodeXMLUnwrapped parses body and, if the root is
// <OperationResponse><OperationResult>...</OperationResult></OperationResponse>,
// unwraps one level (spec §4.3 "Decoding").
func decodeXMLUnwrapped(body []byte, desc shape.Descriptor) (shape.Values, error) {
	root, err := parseXML(body)
	if err != nil {
		return nil, fmt.Errorf("protocol: xml decode: %w", err)
	}
	if strings.HasSuffix(root.Name, "Response") {
		if result, ok := root.child(strings.TrimSuffix(root.Name, "Response") + "Result"); ok {
			return nodeToValues(result, desc), nil
		}
	}
	return nodeToValues(root, desc), nil
}
