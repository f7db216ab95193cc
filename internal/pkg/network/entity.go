package network

import (
	"fmt"

	"github.com/google/uuid"
)

// Entity is the identity core shared by nodes and edges. Two entities are the
// same only if they are the same object; equal labels do not merge them. The
// pid is the stable surrogate used wherever identity crosses a process
// boundary.
type Entity struct {
	pid    uuid.UUID
	label  interface{}
	custom map[string]interface{}
}

func newEntity(label interface{}, custom map[string]interface{}) (Entity, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return Entity{}, err
	}
	return Entity{pid, label, custom}, nil
}

// NewEntity returns a freestanding entity. Nodes and edges embed Entity and
// are constructed through their own factories.
func NewEntity(label interface{}, custom map[string]interface{}) (*Entity, error) {
	ent, err := newEntity(label, custom)
	if err != nil {
		return nil, err
	}
	if ent.label == nil {
		ent.label = fmt.Sprintf("<Entity #%s>", ent.pid)
	}
	return &ent, nil
}

// PID returns the entity's unique id.
func (e *Entity) PID() uuid.UUID {
	return e.pid
}

// Label returns the label fixed at construction. Labels are immutable.
func (e *Entity) Label() interface{} {
	return e.label
}

func (e *Entity) String() string {
	return fmt.Sprint(e.label)
}

// CustomProperties returns the entity's free-form property bag, allocating
// it on first use.
func (e *Entity) CustomProperties() map[string]interface{} {
	if e.custom == nil {
		e.custom = make(map[string]interface{})
	}
	return e.custom
}

// SetProperty stores a custom property on the entity.
func (e *Entity) SetProperty(key string, value interface{}) {
	e.CustomProperties()[key] = value
}
