package schema

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tubelife/pkg/domain"
	"gopkg.in/yaml.v3"
)

// StepJSON is the wire form of a single step.
type StepJSON struct {
	ID    string          `json:"id" yaml:"id"`
	Type  domain.StepType `json:"type" yaml:"type"`
	Pos   *float64        `json:"pos,omitempty" yaml:"pos,omitempty"`
	Speed *float64        `json:"speed,omitempty" yaml:"speed,omitempty"`
	Force *float64        `json:"force,omitempty" yaml:"force,omitempty"`
	Time  *float64        `json:"time,omitempty" yaml:"time,omitempty"`
}

// Payload is the persisted sequence document.
type Payload struct {
	Name string     `json:"name" yaml:"name"`
	Data []StepJSON `json:"data" yaml:"data"`
}

func ptr(f float64) *float64 { return &f }

// StepToJSON converts a domain step to its wire form.
func StepToJSON(s domain.Step) StepJSON {
	switch v := s.(type) {
	case domain.Move:
		return StepJSON{ID: v.ID, Type: v.Type(), Pos: ptr(v.Pos), Speed: ptr(v.Speed), Force: ptr(v.Force)}
	case domain.Delay:
		return StepJSON{ID: v.ID, Type: domain.StepDelay, Time: ptr(v.Time)}
	default:
		return StepJSON{ID: s.StepID(), Type: s.Type()}
	}
}

// StepFromJSON converts a wire step, enforcing that exactly the fields of its
// variant are present.
func StepFromJSON(j StepJSON) (domain.Step, error) {
	if j.ID == "" {
		return nil, &domain.StepError{Field: "id", Reason: "required"}
	}
	switch j.Type {
	case domain.StepMoveA, domain.StepMoveB:
		if j.Time != nil {
			return nil, &domain.StepError{StepID: j.ID, Field: "time", Reason: "not a field of " + string(j.Type)}
		}
		for _, f := range []struct {
			name string
			v    *float64
		}{{"pos", j.Pos}, {"speed", j.Speed}, {"force", j.Force}} {
			if f.v == nil {
				return nil, &domain.StepError{StepID: j.ID, Field: f.name, Reason: "required for " + string(j.Type)}
			}
		}
		axis := domain.AxisA
		if j.Type == domain.StepMoveB {
			axis = domain.AxisB
		}
		return domain.Move{ID: j.ID, Axis: axis, Pos: *j.Pos, Speed: *j.Speed, Force: *j.Force}, nil
	case domain.StepDelay:
		if j.Pos != nil || j.Speed != nil || j.Force != nil {
			return nil, &domain.StepError{StepID: j.ID, Reason: "DELAY only carries time"}
		}
		if j.Time == nil {
			return nil, &domain.StepError{StepID: j.ID, Field: "time", Reason: "required for DELAY"}
		}
		return domain.Delay{ID: j.ID, Time: *j.Time}, nil
	case "":
		return nil, &domain.StepError{StepID: j.ID, Field: "type", Reason: "required"}
	default:
		return nil, &domain.StepError{StepID: j.ID, Field: "type", Reason: fmt.Sprintf("unknown type %q", j.Type)}
	}
}

// FromSequence builds the payload for a sequence.
func FromSequence(seq domain.Sequence) Payload {
	p := Payload{Name: seq.Name, Data: make([]StepJSON, 0, len(seq.Steps))}
	for _, s := range seq.Steps {
		p.Data = append(p.Data, StepToJSON(s))
	}
	return p
}

// ToSequence converts the payload into a domain sequence. Variant fields and
// id uniqueness are checked; stroke and percentage ranges are left to the
// engine, which knows the configured limits.
func (p Payload) ToSequence() (domain.Sequence, error) {
	steps := make([]domain.Step, 0, len(p.Data))
	seen := make(map[string]struct{}, len(p.Data))
	var errs []error
	for i, j := range p.Data {
		s, err := StepFromJSON(j)
		if err != nil {
			if se, ok := err.(*domain.StepError); ok {
				se.Index = i + 1
			}
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[s.StepID()]; dup {
			errs = append(errs, &domain.StepError{Index: i + 1, StepID: s.StepID(), Field: "id", Reason: "duplicate id"})
			continue
		}
		seen[s.StepID()] = struct{}{}
		steps = append(steps, s)
	}
	if len(errs) == 1 {
		return domain.Sequence{}, errs[0]
	}
	if len(errs) > 1 {
		return domain.Sequence{}, &domain.AggregateError{Errors: errs}
	}
	return domain.Sequence{Name: p.Name, Steps: steps}, nil
}

// Marshal encodes a sequence as a JSON payload.
func Marshal(seq domain.Sequence) ([]byte, error) {
	data, err := json.Marshal(FromSequence(seq))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sequence: %w", err)
	}
	return data, nil
}

// MarshalIndent is Marshal with indentation, used for files.
func MarshalIndent(seq domain.Sequence) ([]byte, error) {
	data, err := json.MarshalIndent(FromSequence(seq), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sequence: %w", err)
	}
	return data, nil
}

// MarshalYAML encodes a sequence as a YAML payload.
func MarshalYAML(seq domain.Sequence) ([]byte, error) {
	data, err := yaml.Marshal(FromSequence(seq))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sequence: %w", err)
	}
	return data, nil
}

// Unmarshal decodes and validates a JSON payload.
func Unmarshal(data []byte) (domain.Sequence, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Sequence{}, &DocumentError{Err: err}
	}
	return decode(p, data)
}

// UnmarshalYAML decodes and validates a YAML payload.
func UnmarshalYAML(data []byte) (domain.Sequence, error) {
	var p Payload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return domain.Sequence{}, &DocumentError{Err: err}
	}
	// Re-encode so the same JSON Schema gate applies to both formats.
	canonical, err := json.Marshal(p)
	if err != nil {
		return domain.Sequence{}, &DocumentError{Err: err}
	}
	return decode(p, canonical)
}

func decode(p Payload, raw []byte) (domain.Sequence, error) {
	seq, err := p.ToSequence()
	if err != nil {
		return domain.Sequence{}, err
	}
	if err := ValidateDocument(raw); err != nil {
		return domain.Sequence{}, err
	}
	return seq, nil
}
