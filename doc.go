// Package kouzou implements an archetype-based Entity Component System for Go.
//
// Features:
//   - Archetype storage deduplicated by 256-bit signature masks, max 256
//     component types per registry.
//   - Dense, swap-removed columns exposed as plain slices through View and
//     the Filter iterators.
//   - Generational entity handles over a pooled entity table.
//   - Required components, expanded once per type and checked for cycles at
//     registration.
//   - Shared components deduplicated in reference-counted pools, and
//     Managed handles for values owned outside the row.
//   - Dispose and clone hooks for components that own resources.
//   - A CommandBuffer for structural changes recorded during parallel
//     iteration, and an EventBus for world lifecycle events.
//
// The fixed-tick scheduler that drives systems over a world lives in the
// pipeline subpackage.
package kouzou
