// Package schema converts test sequences to and from their persisted payload.
//
// The payload is the document the rig saves and loads:
//
//	{ "name": "sequence_01", "data": [
//	    { "id": "1", "type": "MOVE_A", "pos": 30, "speed": 50, "force": 100 },
//	    { "id": "2", "type": "DELAY", "time": 1 }
//	] }
//
// Decoding is strict. Every step must carry the fields of its variant and
// nothing else, ids must be unique, and the document must satisfy the embedded
// JSON Schema. Any failure wraps domain.ErrValidation so callers can match it
// with errors.Is, and nothing partial is ever returned.
//
//	seq, err := schema.Unmarshal(data)
//	if errors.Is(err, domain.ErrValidation) {
//	    // keep the current sequence
//	}
//
// The package also decodes loosely typed patch maps (as they arrive from HTTP
// or MCP clients) into domain.StepPatch values.
package schema
