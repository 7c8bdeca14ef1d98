package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tubelife/pkg/domain"
)

func TestMarshal_WireShape(t *testing.T) {
	seq := domain.Sequence{Name: "short", Steps: []domain.Step{
		domain.MoveB("b1", 12.5, 40, 60),
		domain.Delay{ID: "d1", Time: 0.25},
	}}

	data, err := Marshal(seq)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "short",
		"data": [
			{"id": "b1", "type": "MOVE_B", "pos": 12.5, "speed": 40, "force": 60},
			{"id": "d1", "type": "DELAY", "time": 0.25}
		]
	}`, string(data))
}

func TestUnmarshal_DefaultSequence(t *testing.T) {
	data, err := MarshalIndent(domain.DefaultSequence())
	require.NoError(t, err)

	seq, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSequence(), seq)
}

func TestUnmarshalYAML(t *testing.T) {
	data, err := MarshalYAML(domain.DefaultSequence())
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: MOVE_A")

	seq, err := UnmarshalYAML(data)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSequence(), seq)
}

func TestUnmarshal_MissingPos(t *testing.T) {
	_, err := Unmarshal([]byte(`{"name":"x","data":[{"id":"a","type":"MOVE_A","speed":50,"force":10}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var se *domain.StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "pos", se.Field)
	assert.Equal(t, 1, se.Index)
}

func TestUnmarshal_Rejections(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"name":`,
		"no id":            `{"name":"x","data":[{"type":"DELAY","time":1}]}`,
		"unknown type":     `{"name":"x","data":[{"id":"a","type":"MOVE_C","time":1}]}`,
		"delay with pos":   `{"name":"x","data":[{"id":"a","type":"DELAY","time":1,"pos":3}]}`,
		"move with time":   `{"name":"x","data":[{"id":"a","type":"MOVE_A","pos":1,"speed":1,"force":1,"time":2}]}`,
		"duplicate ids":    `{"name":"x","data":[{"id":"a","type":"DELAY","time":1},{"id":"a","type":"DELAY","time":2}]}`,
		"speed over 100":   `{"name":"x","data":[{"id":"a","type":"MOVE_A","pos":1,"speed":101,"force":1}]}`,
		"negative time":    `{"name":"x","data":[{"id":"a","type":"DELAY","time":-1}]}`,
		"missing data":     `{"name":"x"}`,
		"extra step field": `{"name":"x","data":[{"id":"a","type":"DELAY","time":1,"note":"hi"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestToSequence_AggregatesErrors(t *testing.T) {
	p := Payload{Name: "x", Data: []StepJSON{
		{ID: "a", Type: domain.StepDelay},
		{ID: "b", Type: domain.StepMoveA, Time: ptr(1)},
	}}
	_, err := p.ToSequence()
	require.Error(t, err)
	assert.Len(t, domain.ValidationErrors(err), 2)
}

func TestUnmarshal_EmptySequence(t *testing.T) {
	seq, err := Unmarshal([]byte(`{"name":"empty","data":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "empty", seq.Name)
	assert.Empty(t, seq.Steps)
}

func TestSchemaText(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(SchemaText()), &doc))
	assert.Equal(t, []any{"name", "data"}, doc["required"])
}

func TestDecodePatch(t *testing.T) {
	patch, err := DecodePatch("a", domain.StepMoveA, map[string]any{"pos": "12.5", "speed": 40, "id": "a"})
	require.NoError(t, err)
	require.NotNil(t, patch.Pos)
	assert.Equal(t, 12.5, *patch.Pos)
	assert.Equal(t, 40.0, *patch.Speed)
	assert.Nil(t, patch.Force)

	_, err = DecodePatch("a", domain.StepMoveA, map[string]any{"type": "DELAY"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = DecodePatch("a", domain.StepMoveA, map[string]any{"id": "b"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = DecodePatch("a", domain.StepDelay, map[string]any{"duration": 3})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
