package kouzou

import (
	"sync"

	"go.uber.org/zap"
)

type commandKind uint8

const (
	cmdSpawn commandKind = iota
	cmdDestroy
	cmdAdd
	cmdRemove
	cmdDefer
)

type command struct {
	fn     func(w *World, e Entity)
	types  []ComponentType
	entity Entity
	ct     ComponentType
	kind   commandKind
}

// CommandBuffer records structural changes so that systems running in
// parallel over archetype columns never migrate entities underneath each
// other. Recording is safe from any goroutine; the buffer is applied in
// record order by World.FlushCommands, normally between ticks.
type CommandBuffer struct {
	mu   sync.Mutex
	cmds []command
}

func (c *CommandBuffer) push(cmd command) {
	c.mu.Lock()
	c.cmds = append(c.cmds, cmd)
	c.mu.Unlock()
}

// Spawn queues the creation of an entity holding types. init, if not nil,
// runs on the new entity once it exists.
func (c *CommandBuffer) Spawn(types []ComponentType, init func(w *World, e Entity)) {
	c.push(command{kind: cmdSpawn, types: append([]ComponentType(nil), types...), fn: init})
}

// Destroy queues the destruction of e.
func (c *CommandBuffer) Destroy(e Entity) {
	c.push(command{kind: cmdDestroy, entity: e})
}

// AddComponent queues adding a zero ct to e.
func (c *CommandBuffer) AddComponent(e Entity, ct ComponentType) {
	c.push(command{kind: cmdAdd, entity: e, ct: ct})
}

// RemoveComponent queues removing ct from e.
func (c *CommandBuffer) RemoveComponent(e Entity, ct ComponentType) {
	c.push(command{kind: cmdRemove, entity: e, ct: ct})
}

// Defer queues an arbitrary function.
func (c *CommandBuffer) Defer(fn func(w *World)) {
	c.push(command{kind: cmdDefer, fn: func(w *World, _ Entity) { fn(w) }})
}

// Len returns the number of queued commands.
func (c *CommandBuffer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cmds)
}

// Reset drops every queued command.
func (c *CommandBuffer) Reset() {
	c.mu.Lock()
	clear(c.cmds)
	c.cmds = c.cmds[:0]
	c.mu.Unlock()
}

func (c *CommandBuffer) take() []command {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmds := c.cmds
	c.cmds = nil
	return cmds
}

// SetLater queues storing val as e's T component.
func SetLater[T any](c *CommandBuffer, e Entity, val T) {
	c.push(command{kind: cmdDefer, entity: e, fn: func(w *World, e Entity) { Set(w, e, val) }})
}

// FlushCommands applies the queued commands in record order and returns how
// many ran. Each command takes the world lock on its own, so spawn callbacks
// and deferred functions may use the world freely. Commands recorded while
// flushing are left for the next flush. Commands targeting entities that died
// in the meantime are no-ops.
func (w *World) FlushCommands() int {
	cmds := w.commands.take()
	for _, cmd := range cmds {
		switch cmd.kind {
		case cmdSpawn:
			e := w.AddEntity(cmd.types...)
			if cmd.fn != nil {
				cmd.fn(w, e)
			}
		case cmdDestroy:
			w.DestroyEntity(cmd.entity)
		case cmdAdd:
			w.TryAddComponent(cmd.entity, cmd.ct)
		case cmdRemove:
			w.RemoveComponent(cmd.entity, cmd.ct)
		case cmdDefer:
			cmd.fn(w, cmd.entity)
		}
	}
	if len(cmds) > 0 {
		w.log.Debug("commands flushed", zap.Int("count", len(cmds)))
	}
	return len(cmds)
}
