package library

import (
	"context"
	"sync"

	"github.com/aretw0/tubelife/pkg/schema"
)

// Host implements ports.Host on top of a Manager. Saves go under the name
// carried by the payload; loads read the currently selected name.
type Host struct {
	m *Manager

	mu       sync.Mutex
	selected string
}

// NewHost returns a host that loads `selected` until Select is called.
func NewHost(m *Manager, selected string) *Host {
	return &Host{m: m, selected: selected}
}

// Select changes which sequence LoadSequence returns.
func (h *Host) Select(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = name
}

// Selected returns the name LoadSequence reads.
func (h *Host) Selected() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

// SaveSequence validates and stores a payload.
func (h *Host) SaveSequence(ctx context.Context, payload []byte) error {
	seq, err := schema.Unmarshal(payload)
	if err != nil {
		return err
	}
	return h.m.Save(ctx, seq)
}

// LoadSequence returns the selected sequence as a payload.
func (h *Host) LoadSequence(ctx context.Context) ([]byte, error) {
	seq, err := h.m.Load(ctx, h.Selected())
	if err != nil {
		return nil, err
	}
	return schema.Marshal(seq)
}
