// Package shape describes the per-field metadata (spec §3 "Shape") that
// drives the protocol codec: where a member is placed on the wire
// (header, querystring, uri, payload, body, statusCode), its wire name,
// and its type, so the codec (internal/protocol) never needs reflection
// over generated structs — each service package supplies a static
// []Member table instead.
//
// Grounded on the teacher's internal/operation/api.BaseProvider, whose
// BuildURL substitutes named placeholders into a path template; this
// package generalizes that single mechanism into the full location enum
// the spec requires.
package shape

// Location is where a member is placed on the wire.
type Location string

const (
	LocationHeader      Location = "header"
	LocationQueryString Location = "querystring"
	LocationURI         Location = "uri"
	LocationPayload     Location = "payload"
	LocationBody        Location = "body"
	LocationStatusCode  Location = "statusCode"
)

// Kind is the member's scalar/aggregate type, used to select date
// formatting, numeric coercion, and base64 blob handling during encode
// and decode.
type Kind string

const (
	KindString    Kind = "string"
	KindInteger   Kind = "integer"
	KindLong      Kind = "long"
	KindFloat     Kind = "float"
	KindDouble    Kind = "double"
	KindBoolean   Kind = "boolean"
	KindBlob      Kind = "blob"
	KindTimestamp Kind = "timestamp"
	KindList      Kind = "list"
	KindMap       Kind = "map"
	KindStructure Kind = "structure"
	KindDocument  Kind = "document"
)

// TimestampFormat negotiates the wire representation of a Kind==Timestamp
// member (spec §4.3 "Date encoding").
type TimestampFormat string

const (
	TimestampISO8601       TimestampFormat = "iso8601"
	TimestampISO8601Millis TimestampFormat = "iso8601millis"
	TimestampRFC822        TimestampFormat = "rfc822"
	TimestampUnixSeconds   TimestampFormat = "unixTimestamp"
)

// Member describes a single field of an EncodableShape / DecodableShape.
type Member struct {
	// Label is the Go struct field name (used to read/write via the
	// generated accessor, not via reflection).
	Label string
	// Name is the wire name: header name, query key, path placeholder
	// name, or JSON/XML field name, depending on Location.
	Name string
	Location  Location
	Kind      Kind
	Timestamp TimestampFormat
	// Flatten marks a list member for EC2 flattening (no .member.N
	// wrapper). The query protocol and map members ignore it.
	Flatten bool
	// GreedyURI marks a {name+} uri placeholder, which retains "/" and
	// percent-encodes everything else.
	GreedyURI bool
}

// Descriptor is the full `_members` metadata for one shape plus the
// protocol-level hints the codec needs: which member (if any) is the raw
// payload, and an XML namespace to apply to the root element.
type Descriptor struct {
	Members     []Member
	PayloadPath string
	XMLNamespace string
	// RawPayload marks a streaming output shape. No codec or transport
	// code reads it: response bodies are always fully buffered before
	// decoding.
	RawPayload bool
}

// PayloadMember returns the Member acting as the raw payload, if any.
func (d Descriptor) PayloadMember() (Member, bool) {
	if d.PayloadPath == "" {
		return Member{}, false
	}
	for _, m := range d.Members {
		if m.Label == d.PayloadPath {
			return m, true
		}
	}
	return Member{}, false
}

// ByLocation returns the subset of members placed at loc, in declaration
// order.
func (d Descriptor) ByLocation(loc Location) []Member {
	var out []Member
	for _, m := range d.Members {
		if m.Location == loc {
			out = append(out, m)
		}
	}
	return out
}
