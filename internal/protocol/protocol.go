// Package protocol implements the wire codec of spec §4.3: it maps an
// EncodableShape (via shape.Values + shape.Descriptor) to an HTTP request
// body plus header/query/path decorations, and maps an HTTP response back
// to a DecodableShape, for each of the six service protocol variants
// {json, restJson, xml, restXml, query, ec2}.
//
// Grounded on the teacher's internal/operation/api.BaseProvider (URL
// placeholder substitution, JSON response parsing) generalized to the
// full location/protocol matrix, since the teacher's connector framework
// only ever spoke JSON-over-REST to third-party APIs.
package protocol

import (
	"fmt"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// ID names one of the six service protocol variants.
type ID string

const (
	JSON     ID = "json"
	RestJSON ID = "restJson"
	XML      ID = "xml"
	RestXML  ID = "restXml"
	Query    ID = "query"
	EC2      ID = "ec2"
)

// EncodedRequest is the protocol-agnostic result of encoding an input
// shape: an HTTP method/path is supplied by the caller (from the
// operation's route), this only carries what the codec controls.
type EncodedRequest struct {
	Headers     map[string]string
	QueryString map[string][]string
	Body        []byte
	ContentType string
	// URIPath is the path template with {name}/{name+} placeholders
	// substituted; callers combine it with the endpoint host.
	URIPath string
}

// DecodeInput is what the codec needs to decode a response: the raw body,
// headers, and status code. The output descriptor is passed separately.
type DecodeInput struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
}

// Codec encodes/decodes for one protocol variant.
type Codec interface {
	ID() ID
	// Encode builds the wire request for op (used to set X-Amz-Target for
	// json, Action/Version for query/ec2) from input's shape.Values per
	// desc, substituting uriPathTemplate's placeholders from input.
	Encode(op string, apiVersion string, amzTarget string, uriPathTemplate string, desc shape.Descriptor, input shape.Values) (EncodedRequest, error)
	// Decode parses a successful (2xx) response into shape.Values per desc.
	Decode(resp DecodeInput, desc shape.Descriptor) (shape.Values, error)
	// DecodeError extracts {code, message} from a non-2xx response (spec
	// §4.7 "Error extraction by protocol").
	DecodeError(resp DecodeInput) (code string, message string, err error)
}

// New returns the Codec for id.
func New(id ID) (Codec, error) {
	switch id {
	case JSON:
		return jsonCodec{}, nil
	case RestJSON:
		return restJSONCodec{}, nil
	case XML:
		return xmlCodec{}, nil
	case RestXML:
		return restXMLCodec{}, nil
	case Query:
		return queryCodec{ec2: false}, nil
	case EC2:
		return queryCodec{ec2: true}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown protocol id %q", id)
	}
}
