package awssdk

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocloudkit/awssdk-core/internal/awscreds"
	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// TestPaginatorTerminatesOnNilToken implements spec scenario 5: successive
// pages carry tokens "a", "b", then null, and the paginator yields exactly
// three pages and stops.
func TestPaginatorTerminatesOnNilToken(t *testing.T) {
	rt := &fakeRoundTripper{responses: []fakeResponse{
		{status: 200, body: `{"Items":["x"],"NextToken":"a"}`},
		{status: 200, body: `{"Items":["y"],"NextToken":"b"}`},
		{status: 200, body: `{"Items":["z"]}`},
	}}
	c := New(testConfig(),
		WithCredentialProvider(awscreds.NewStatic("AKIAEXAMPLE", "secret", "")),
		WithHTTPClient(rt),
	)

	op := Operation{
		Name:         "ListWidgets",
		Method:       http.MethodPost,
		PathTemplate: "/widgets",
		InputDescriptor: shape.Descriptor{Members: []shape.Member{
			{Label: "NextToken", Name: "NextToken", Location: shape.LocationBody, Kind: shape.KindString},
		}},
		OutputDescriptor: shape.Descriptor{Members: []shape.Member{
			{Label: "Items", Name: "Items", Location: shape.LocationBody, Kind: shape.KindList},
			{Label: "NextToken", Name: "NextToken", Location: shape.LocationBody, Kind: shape.KindString},
		}},
	}

	p := NewPaginator[shape.Values](c, op, shape.Values{}, TokenPaths{
		InputTokenLabel:  "NextToken",
		OutputTokenLabel: "NextToken",
	})

	var pages int
	for {
		_, ok, err := p.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		pages++
	}
	require.Equal(t, 3, pages)
	require.Len(t, rt.requests, 3)
}

// TestPaginatorTerminatesOnMoreResultsFalse covers the moreResultsPath
// termination rule (spec §4.9).
func TestPaginatorTerminatesOnMoreResultsFalse(t *testing.T) {
	rt := &fakeRoundTripper{responses: []fakeResponse{
		{status: 200, body: `{"Items":["x"],"NextToken":"a","HasMore":true}`},
		{status: 200, body: `{"Items":["y"],"NextToken":"b","HasMore":false}`},
	}}
	c := New(testConfig(),
		WithCredentialProvider(awscreds.NewStatic("AKIAEXAMPLE", "secret", "")),
		WithHTTPClient(rt),
	)

	op := Operation{
		Name:         "ListWidgets",
		Method:       http.MethodPost,
		PathTemplate: "/widgets",
		InputDescriptor: shape.Descriptor{Members: []shape.Member{
			{Label: "NextToken", Name: "NextToken", Location: shape.LocationBody, Kind: shape.KindString},
		}},
		OutputDescriptor: shape.Descriptor{Members: []shape.Member{
			{Label: "Items", Name: "Items", Location: shape.LocationBody, Kind: shape.KindList},
			{Label: "NextToken", Name: "NextToken", Location: shape.LocationBody, Kind: shape.KindString},
			{Label: "HasMore", Name: "HasMore", Location: shape.LocationBody, Kind: shape.KindBoolean},
		}},
	}

	p := NewPaginator[shape.Values](c, op, shape.Values{}, TokenPaths{
		InputTokenLabel:  "NextToken",
		OutputTokenLabel: "NextToken",
		MoreResultsLabel: "HasMore",
	})

	var pages int
	for {
		_, ok, err := p.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		pages++
	}
	require.Equal(t, 2, pages)
}
