package awssdk

import (
	"context"
	"encoding/json"

	"github.com/gocloudkit/awssdk-core/internal/shape"
)

// reencode marshals v (typically a *Output pointer) to JSON and
// unmarshals it into out, mirroring decodeInto's json round-trip in the
// opposite direction.
func reencode(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// TokenPaths names the shape.Values keys the Paginator reads/writes
// across pages (spec §3 PaginatorState, §4.9).
type TokenPaths struct {
	// InputTokenLabel is the input field the Paginator overwrites with
	// the next page's token before each call after the first.
	InputTokenLabel string
	// OutputTokenLabel is the output field carrying the next page's
	// token, or "" if absent.
	OutputTokenLabel string
	// MoreResultsLabel, if non-empty, names an output boolean field that
	// explicitly signals "no more pages" when false.
	MoreResultsLabel string
}

// Paginator produces a forward-only, non-restartable lazy sequence of
// Output pages by repeatedly invoking an operation with an
// auto-advancing token field (spec §4.9).
type Paginator[Output any] struct {
	c     *Client
	op    Operation
	input shape.Values
	paths TokenPaths

	done          bool
	lastInputTok  any
	started       bool
}

// NewPaginator builds a Paginator for op over input, using paths to
// locate the token fields (spec §6 "Paginator.new(...)").
func NewPaginator[Output any](c *Client, op Operation, input shape.Values, paths TokenPaths) *Paginator[Output] {
	clone := make(shape.Values, len(input))
	for k, v := range input {
		clone[k] = v
	}
	return &Paginator[Output]{c: c, op: op, input: clone, paths: paths}
}

// Next fetches the next page, or (nil, false, nil) once the sequence has
// terminated (spec §4.9 termination rules: token absent, token unchanged,
// or moreResults==false).
func (p *Paginator[Output]) Next(ctx context.Context) (*Output, bool, error) {
	if p.done {
		return nil, false, nil
	}

	if p.started && p.paths.InputTokenLabel != "" {
		p.input[p.paths.InputTokenLabel] = p.lastInputTok
	}
	p.started = true

	output, err := Execute[Output](ctx, p.c, p.op, p.input)
	if err != nil {
		p.done = true
		return nil, false, err
	}

	values, err := decodeValues(output)
	if err != nil {
		p.done = true
		return nil, false, err
	}

	token, hasToken := values[p.paths.OutputTokenLabel]
	if p.paths.OutputTokenLabel == "" || !hasToken || token == nil {
		p.done = true
		return output, true, nil
	}

	if p.paths.InputTokenLabel != "" {
		if prev, ok := p.input[p.paths.InputTokenLabel]; ok && prev == token {
			p.done = true
			return output, true, nil
		}
	}

	if p.paths.MoreResultsLabel != "" {
		if more, ok := values[p.paths.MoreResultsLabel].(bool); ok && !more {
			p.done = true
			return output, true, nil
		}
	}

	p.lastInputTok = token
	return output, true, nil
}

// decodeValues round-trips output back into shape.Values so the
// Paginator can inspect token fields without requiring Output itself to
// be shape.Values.
func decodeValues(output any) (shape.Values, error) {
	if v, ok := output.(*shape.Values); ok {
		return *v, nil
	}
	var values shape.Values
	if err := reencode(output, &values); err != nil {
		return nil, err
	}
	return values, nil
}
