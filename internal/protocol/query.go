package protocol

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// queryCodec implements both `query` and `ec2`: a form-urlencoded dict of
// the flattened input plus Action/Version, differing only in how lists
// flatten (spec §4.3 "Query flattening").
type queryCodec struct {
	ec2 bool
}

func (c queryCodec) ID() ID {
	if c.ec2 {
		return EC2
	}
	return Query
}

func (c queryCodec) Encode(op, apiVersion, amzTarget, uriPathTemplate string, desc shape.Descriptor, input shape.Values) (EncodedRequest, error) {
	path, err := substituteURI(uriPathTemplate, desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}

	form := make(map[string][]string)
	form["Action"] = []string{op}
	form["Version"] = []string{apiVersion}
	for _, m := range desc.Members {
		if m.Location == shape.LocationHeader || m.Location == shape.LocationURI || m.Location == shape.LocationStatusCode {
			continue
		}
		v, ok := input[m.Label]
		if !ok || v == nil {
			continue
		}
		flattenInto(form, m.Name, v, m.Flatten, c.ec2)
	}

	body := encodeForm(form)
	headers, err := encodeHeaders(desc, input)
	if err != nil {
		return EncodedRequest{}, err
	}
	headers["Content-Type"] = "application/x-www-form-urlencoded"

	return EncodedRequest{
		Headers:     headers,
		QueryString: nil,
		Body:        []byte(body),
		ContentType: "application/x-www-form-urlencoded",
		URIPath:     path,
	}, nil
}

// encodeForm renders a flattened form map with keys sorted for
// deterministic signatures (spec §4.3 "Key ordering: sorted by key name").
func encodeForm(form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range form[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func (c queryCodec) Decode(resp DecodeInput, desc shape.Descriptor) (shape.Values, error) {
	return decodeXMLUnwrapped(resp.Body, desc)
}

func (c queryCodec) DecodeError(resp DecodeInput) (string, string, error) {
	return decodeXMLError(resp.Body)
}

// errorEnvelope matches the AWS query/restXml <Error> error shape (spec
// §4.7 "Error extraction by protocol").
type errorEnvelope struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
}

func decodeXMLError(body []byte) (string, string, error) {
	var direct struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	}
	if err := xml.Unmarshal(body, &direct); err == nil && direct.Code != "" {
		return direct.Code, direct.Message, nil
	}

	var wrapped errorEnvelope
	if err := xml.Unmarshal(body, &wrapped); err != nil {
		return "", "", fmt.Errorf("protocol: xml error decode: %w", err)
	}
	return wrapped.Error.Code, wrapped.Error.Message, nil
}
