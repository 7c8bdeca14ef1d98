package schema

import (
	"fmt"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DecodePatch turns a loosely typed field map into a StepPatch for the step
// with the given id and type. The "id" and "type" keys are accepted only when
// they repeat the current values, since a patch never changes either.
func DecodePatch(id string, kind domain.StepType, raw map[string]any) (domain.StepPatch, error) {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case "id":
			if s, ok := v.(string); !ok || s != id {
				return domain.StepPatch{}, &domain.StepError{StepID: id, Field: "id", Reason: "id cannot be changed"}
			}
		case "type":
			if s, ok := v.(string); !ok || domain.StepType(s) != kind {
				return domain.StepPatch{}, &domain.StepError{StepID: id, Field: "type", Reason: fmt.Sprintf("cannot change %s step type", kind)}
			}
		default:
			fields[k] = v
		}
	}

	var patch domain.StepPatch
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &patch,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.StepPatch{}, fmt.Errorf("failed to build patch decoder: %w", err)
	}
	if err := dec.Decode(fields); err != nil {
		return domain.StepPatch{}, &domain.StepError{StepID: id, Reason: err.Error()}
	}
	return patch, nil
}
