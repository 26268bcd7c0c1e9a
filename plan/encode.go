package plan

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Wire format: a MessagePack envelope carrying the root kind and the single
// populated node. The envelope is opaque to callers; it travels inside a
// Flight ticket (queries) or action body (commands, analysis).

type envelope struct {
	Kind    Kind         `msgpack:"kind"`
	SQL     *SQLNode     `msgpack:"sql,omitempty"`
	Table   *TableNode   `msgpack:"table,omitempty"`
	Range   *RangeNode   `msgpack:"range,omitempty"`
	Command *CommandNode `msgpack:"command,omitempty"`
}

// Encode serializes a plan for transmission. The plan is validated first so
// a malformed tree never reaches the wire.
func Encode(p *Plan) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	data, err := msgpack.Marshal(envelope{
		Kind:    p.Root,
		SQL:     p.SQL,
		Table:   p.Table,
		Range:   p.Range,
		Command: p.Command,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}

	return data, nil
}

// Decode parses an encoded plan and validates the result.
// Returns error if the payload is empty, undecodable, or structurally invalid.
func Decode(data []byte) (*Plan, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: encoded plan cannot be empty", ErrInvalidOperation)
	}

	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}

	p := &Plan{
		Root:    env.Kind,
		SQL:     env.SQL,
		Table:   env.Table,
		Range:   env.Range,
		Command: env.Command,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}
