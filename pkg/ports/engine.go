package ports

import (
	"context"

	"github.com/aretw0/tubelife/pkg/domain"
)

// Controller is the command surface of a running engine, as seen by outer
// layers (HTTP, MCP, CLI).
type Controller interface {
	Start(ctx context.Context) bool
	Pause(ctx context.Context) bool
	Stop(ctx context.Context) bool
	Reset(ctx context.Context) bool

	AddStep(ctx context.Context, step domain.Step) (domain.Step, error)
	RemoveStep(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
	UpdateStepFields(ctx context.Context, id string, fields map[string]any) (domain.Step, error)
	SetTotalCycles(ctx context.Context, total int64) error
	SetTotalCyclesInput(ctx context.Context, raw string) error
	LoadPayload(ctx context.Context, data []byte) error
	SerializePayload(name string) ([]byte, error)
	ClearLog()

	Save(ctx context.Context, name string) error
	RequestLoad(ctx context.Context) error

	Snapshot() domain.Snapshot
}
