package kouzou_test

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/edwinsyarief/kouzou"
)

// --- Test Components ---
type Position struct{ X, Y float32 }
type Velocity struct{ VX, VY float32 }
type Health struct{ Current, Max int }
type Tag struct{}

type material struct{ Name string }

type hookCounts struct{ disposed, cloned int }

// resource counts its hook calls through a shared pointer.
type resource struct{ h *hookCounts }

func (r *resource) Dispose() {
	if r.h != nil {
		r.h.disposed++
	}
}

func (r *resource) OnClone() {
	if r.h != nil {
		r.h.cloned++
	}
}

// --- Test Suite Setup ---
func setupWorld(_ *testing.T) (*kouzou.World, kouzou.ComponentType, kouzou.ComponentType, kouzou.ComponentType) {
	w := kouzou.NewWorld()
	return w, kouzou.TypeOf[Position](w), kouzou.TypeOf[Velocity](w), kouzou.TypeOf[Health](w)
}

// --- Tests ---

// go test -run ^TestCreateEntity$ . -count 1
func TestCreateEntity(t *testing.T) {
	world, _, _, _ := setupWorld(t)
	e1 := world.CreateEntity()
	e2 := world.CreateEntity()

	if e1.ID != 0 {
		t.Errorf("Expected first entity ID to be 0, got %d", e1.ID)
	}
	if e1.Version != 1 {
		t.Errorf("Expected first entity version to be 1, got %d", e1.Version)
	}
	if e2.ID != 1 {
		t.Errorf("Expected second entity ID to be 1, got %d", e2.ID)
	}
	if world.ArchetypeOf(e1) != nil {
		t.Error("Expected a new entity to have no archetype")
	}
	if world.Len() != 2 {
		t.Errorf("Expected 2 live entities, got %d", world.Len())
	}
}

// go test -run ^TestAddComponent$ . -count 1
func TestAddComponent(t *testing.T) {
	world, _, _, _ := setupWorld(t)
	e := world.CreateEntity()

	p := kouzou.TryAdd[Position](world, e)
	if p == nil {
		t.Fatal("TryAdd returned a nil pointer")
	}
	p.X = 10
	p.Y = 20

	got := kouzou.Comp[Position](world, e)
	if got == nil {
		t.Fatal("Comp failed to find the component")
	}
	if got.X != 10 || got.Y != 20 {
		t.Errorf("Component data is incorrect after adding. Got %+v", got)
	}
	if kouzou.TryAdd[Position](world, e) != nil {
		t.Error("Expected TryAdd of a duplicate component to return nil")
	}
	if existing := kouzou.GetOrAdd[Position](world, e); existing == nil || existing.X != 10 {
		t.Errorf("Expected GetOrAdd to return the existing component, got %+v", existing)
	}
}

// go test -run ^TestSetComponent$ . -count 1
func TestSetComponent(t *testing.T) {
	world, _, _, _ := setupWorld(t)
	e := world.CreateEntity()

	t.Run("AddNewComponent", func(t *testing.T) {
		if !kouzou.Set(world, e, Position{X: 100, Y: 200}) {
			t.Fatal("Set failed to add a new component")
		}
		if p := kouzou.Comp[Position](world, e); p == nil || p.X != 100 {
			t.Errorf("Expected X=100, got %+v", p)
		}
	})

	t.Run("UpdateExistingComponent", func(t *testing.T) {
		arch := world.ArchetypeOf(e)
		kouzou.Set(world, e, Position{X: 1, Y: 2})
		if world.ArchetypeOf(e) != arch {
			t.Error("Updating a component must not migrate the entity")
		}
		if p := kouzou.Comp[Position](world, e); p.X != 1 || p.Y != 2 {
			t.Errorf("Expected {1 2}, got %+v", p)
		}
	})

	t.Run("DeadEntity", func(t *testing.T) {
		dead := world.CreateEntity()
		world.DestroyEntity(dead)
		if kouzou.Set(world, dead, Position{}) {
			t.Error("Expected Set on a dead entity to fail")
		}
	})
}

// go test -run ^TestRemoveComponent$ . -count 1
func TestRemoveComponent(t *testing.T) {
	world, pos, vel, _ := setupWorld(t)
	e := world.AddEntity(pos, vel)

	if !kouzou.Remove[Velocity](world, e) {
		t.Fatal("Remove failed")
	}
	if kouzou.Has[Velocity](world, e) {
		t.Error("Entity still has Velocity after removal")
	}
	if kouzou.Remove[Velocity](world, e) {
		t.Error("Removing a missing component must return false")
	}
	if world.ArchetypeOf(e) != world.FindArchetype(pos) {
		t.Error("Expected the entity to live in the Position archetype")
	}

	t.Run("LastComponent", func(t *testing.T) {
		if !kouzou.Remove[Position](world, e) {
			t.Fatal("Remove failed")
		}
		if world.ArchetypeOf(e) != nil {
			t.Error("Expected the entity to be archetype-less")
		}
		if !world.IsAlive(e) {
			t.Error("Removing the last component must not destroy the entity")
		}
		if kouzou.Remove[Position](world, e) {
			t.Error("Removing from an archetype-less entity must return false")
		}
	})
}

// go test -run ^TestArchetypeDedup$ . -count 1
func TestArchetypeDedup(t *testing.T) {
	world, pos, vel, health := setupWorld(t)
	a := world.GetArchetype(pos, vel, health)

	orders := [][]kouzou.ComponentType{
		{pos, vel, health},
		{health, vel, pos},
		{vel, pos, health},
		{vel, health, pos, vel},
	}
	for _, order := range orders {
		if got := world.FindArchetype(order...); got != a {
			t.Errorf("FindArchetype(%v) returned a different archetype", order)
		}
	}
	if world.GetArchetype(health, pos, vel) != a {
		t.Error("GetArchetype created a duplicate archetype")
	}
	if n := len(world.Archetypes()); n != 1 {
		t.Errorf("Expected 1 archetype, got %d", n)
	}
	if world.FindArchetype(pos) != nil {
		t.Error("Expected no archetype for a subset signature")
	}
}

// go test -run ^TestArchetypeRoundTrip$ . -count 1
func TestArchetypeRoundTrip(t *testing.T) {
	world, pos, _, _ := setupWorld(t)
	a := world.GetArchetype(pos)
	world.AddEntity(pos)
	before := a.Len()

	e := world.AddEntity(pos)
	if a.Len() != before+1 {
		t.Fatalf("Expected %d entities, got %d", before+1, a.Len())
	}
	if !a.ContainsEntityID(e.ID) {
		t.Fatal("Archetype does not contain the new entity")
	}
	world.DestroyEntity(e)
	if a.Len() != before {
		t.Errorf("Expected %d entities after removal, got %d", before, a.Len())
	}
	if a.ContainsEntityID(e.ID) {
		t.Error("Archetype still contains the destroyed entity")
	}
}

// go test -run ^TestComponentDataIntegrityAfterSwapRemove$ . -count 1
func TestComponentDataIntegrityAfterSwapRemove(t *testing.T) {
	world, pos, _, _ := setupWorld(t)
	ea := world.AddEntity(pos)
	eb := world.AddEntity(pos)
	ec := world.AddEntity(pos)
	kouzou.Set(world, ea, Position{X: 1})
	kouzou.Set(world, eb, Position{X: 2})
	kouzou.Set(world, ec, Position{X: 3})

	world.DestroyEntity(eb)

	a := world.FindArchetype(pos)
	if a.Len() != 2 {
		t.Fatalf("Expected 2 entities, got %d", a.Len())
	}
	ids := a.EntityIDs()
	slices.Sort(ids)
	if !slices.Equal(ids, []uint32{ea.ID, ec.ID}) {
		t.Errorf("Expected members {%d %d}, got %v", ea.ID, ec.ID, ids)
	}
	if a.ContainsEntityID(eb.ID) {
		t.Error("Removed entity is still a member")
	}
	if p := kouzou.Comp[Position](world, ea); p.X != 1 {
		t.Errorf("Entity A data corrupted: %+v", p)
	}
	if p := kouzou.Comp[Position](world, ec); p.X != 3 {
		t.Errorf("Entity C data corrupted after being moved: %+v", p)
	}
	if row := a.Row(ec.ID); a.EntityIDAt(row) != ec.ID {
		t.Error("Row map is inconsistent after swap-remove")
	}
}

// go test -run ^TestMigrationPreservesData$ . -count 1
func TestMigrationPreservesData(t *testing.T) {
	world, pos, _, _ := setupWorld(t)
	e := world.CreateEntity()
	kouzou.Set(world, e, Position{X: 5})
	other := world.AddEntity(pos)
	kouzou.Set(world, other, Position{X: 7})

	if kouzou.TryAdd[Velocity](world, e) == nil {
		t.Fatal("TryAdd failed")
	}
	if p := kouzou.Comp[Position](world, e); p.X != 5 {
		t.Errorf("Position changed while adding Velocity: %+v", p)
	}
	kouzou.Remove[Velocity](world, e)
	if p := kouzou.Comp[Position](world, e); p.X != 5 {
		t.Errorf("Position changed while removing Velocity: %+v", p)
	}
	if p := kouzou.Comp[Position](world, other); p.X != 7 {
		t.Errorf("Bystander data corrupted: %+v", p)
	}
	if world.ArchetypeOf(e) != world.FindArchetype(pos) {
		t.Error("Expected the entity back in the Position archetype")
	}
}

// go test -run ^TestGenerationalSafety$ . -count 1
func TestGenerationalSafety(t *testing.T) {
	world, pos, _, _ := setupWorld(t)
	e := world.AddEntity(pos)
	world.DestroyEntity(e)
	if world.IsAlive(e) {
		t.Fatal("Destroyed entity is still alive")
	}

	reused := world.AddEntity(pos)
	if reused.ID != e.ID {
		t.Fatalf("Expected slot %d to be reused, got %d", e.ID, reused.ID)
	}
	if reused.Version <= e.Version {
		t.Errorf("Expected version > %d, got %d", e.Version, reused.Version)
	}
	if world.IsAlive(e) {
		t.Error("Stale handle became alive again")
	}
	if kouzou.Comp[Position](world, e) != nil {
		t.Error("Stale handle resolved to a component")
	}
	if world.DestroyEntity(e) {
		t.Error("Destroying a stale handle must fail")
	}
	if !world.IsAlive(reused) {
		t.Error("The new entity was destroyed through a stale handle")
	}
	if world.IsAlive(kouzou.NullEntity) {
		t.Error("NullEntity is never alive")
	}
}

// go test -run ^TestClone$ . -count 1
func TestClone(t *testing.T) {
	world, _, _, _ := setupWorld(t)
	counts := &hookCounts{}
	e := world.CreateEntity()
	kouzou.Set(world, e, Position{X: 4})
	kouzou.Set(world, e, resource{h: counts})

	c := world.Clone(e)
	if c == e || !world.IsAlive(c) {
		t.Fatalf("Clone returned %v", c)
	}
	if world.ArchetypeOf(c) != world.ArchetypeOf(e) {
		t.Error("Clone must share the source archetype")
	}
	if p := kouzou.Comp[Position](world, c); p.X != 4 {
		t.Errorf("Clone did not copy Position: %+v", p)
	}
	kouzou.Comp[Position](world, c).X = 8
	if p := kouzou.Comp[Position](world, e); p.X != 4 {
		t.Error("Writing the clone changed the source")
	}
	if counts.cloned != 1 {
		t.Errorf("Expected 1 OnClone call, got %d", counts.cloned)
	}
	if world.Clone(kouzou.NullEntity) != kouzou.NullEntity {
		t.Error("Cloning a dead entity must return NullEntity")
	}
}

// go test -run ^TestDisposeHooks$ . -count 1
func TestDisposeHooks(t *testing.T) {
	world, _, _, _ := setupWorld(t)
	counts := &hookCounts{}

	t.Run("Destroy", func(t *testing.T) {
		e := world.CreateEntity()
		kouzou.Set(world, e, resource{h: counts})
		world.DestroyEntity(e)
		if counts.disposed != 1 {
			t.Errorf("Expected 1 Dispose call, got %d", counts.disposed)
		}
	})

	t.Run("MigrationDropsColumn", func(t *testing.T) {
		e := world.CreateEntity()
		kouzou.Set(world, e, Position{})
		kouzou.Set(world, e, resource{h: counts})
		kouzou.TryAdd[Velocity](world, e)
		if counts.disposed != 1 {
			t.Errorf("Carried-over components must not be disposed, got %d calls", counts.disposed)
		}
		kouzou.Remove[resource](world, e)
		if counts.disposed != 2 {
			t.Errorf("Expected the dropped column to be disposed, got %d calls", counts.disposed)
		}
	})

	t.Run("ClearEntities", func(t *testing.T) {
		e := world.CreateEntity()
		kouzou.Set(world, e, resource{h: counts})
		world.ClearEntities()
		if counts.disposed != 3 {
			t.Errorf("Expected 3 Dispose calls, got %d", counts.disposed)
		}
		if world.Len() != 0 || world.IsAlive(e) {
			t.Error("ClearEntities left live entities")
		}
	})
}

// go test -run ^TestRequiredComponents$ . -count 1
func TestRequiredComponents(t *testing.T) {
	reg := kouzou.NewRegistry()
	if _, err := kouzou.RegisterComponent[Velocity](reg, kouzou.Require[Position]()); err != nil {
		t.Fatal(err)
	}
	if _, err := kouzou.RegisterComponent[Health](reg, kouzou.Require[Velocity]()); err != nil {
		t.Fatal(err)
	}
	world := kouzou.NewWorld(kouzou.WithRegistry(reg))

	e := world.CreateEntity()
	kouzou.TryAdd[Health](world, e)
	if !kouzou.Has[Velocity](world, e) || !kouzou.Has[Position](world, e) {
		t.Error("Expected required components to be added transitively")
	}
	if n := world.ArchetypeOf(e).Signature().Len(); n != 3 {
		t.Errorf("Expected a 3-component signature, got %d", n)
	}

	e2 := world.AddEntity(kouzou.TypeOf[Velocity](world))
	if !kouzou.Has[Position](world, e2) {
		t.Error("AddEntity must expand requirements")
	}
	data, ok := reg.Data(kouzou.TypeOf[Health](world))
	if !ok || len(data.Requires) != 1 || data.Kind != kouzou.KindNormal {
		t.Errorf("Unexpected component data %+v", data)
	}
}

type cycleA struct{}
type cycleB struct{}
type selfish struct{}

// go test -run ^TestRegistrationErrors$ . -count 1
func TestRegistrationErrors(t *testing.T) {
	t.Run("Cycle", func(t *testing.T) {
		reg := kouzou.NewRegistry()
		if _, err := kouzou.RegisterComponent[cycleA](reg, kouzou.Require[cycleB]()); err != nil {
			t.Fatal(err)
		}
		_, err := kouzou.RegisterComponent[cycleB](reg, kouzou.Require[cycleA]())
		if !errors.Is(err, kouzou.ErrRequireCycle) {
			t.Errorf("Expected ErrRequireCycle, got %v", err)
		}
		_, err = kouzou.RegisterComponent[selfish](reg, kouzou.Require[selfish]())
		if !errors.Is(err, kouzou.ErrRequireCycle) {
			t.Errorf("Expected ErrRequireCycle for a self requirement, got %v", err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		reg := kouzou.NewRegistry()
		first, err := kouzou.RegisterComponent[Position](reg)
		if err != nil {
			t.Fatal(err)
		}
		again, err := kouzou.RegisterComponent[Position](reg)
		if !errors.Is(err, kouzou.ErrComponentRegistered) {
			t.Errorf("Expected ErrComponentRegistered, got %v", err)
		}
		if again != first {
			t.Error("A duplicate registration must return the existing id")
		}
		if kouzou.ComponentTypeOf[Position](reg) != first {
			t.Error("ComponentTypeOf must be idempotent")
		}
	})

	t.Run("Sealed", func(t *testing.T) {
		reg := kouzou.NewRegistry()
		world := kouzou.NewWorld(kouzou.WithRegistry(reg))
		world.AddEntity(kouzou.TypeOf[Tag](world))
		_, err := kouzou.RegisterComponent[Tag](reg, kouzou.Require[Position]())
		if !errors.Is(err, kouzou.ErrComponentSealed) {
			t.Errorf("Expected ErrComponentSealed, got %v", err)
		}
	})
}

// go test -run ^TestSharedComponents$ . -count 1
func TestSharedComponents(t *testing.T) {
	reg := kouzou.NewRegistry()
	mt, err := kouzou.RegisterShared[material](reg)
	if err != nil {
		t.Fatal(err)
	}
	world := kouzou.NewWorld(kouzou.WithRegistry(reg))
	e1 := world.CreateEntity()
	e2 := world.CreateEntity()

	kouzou.SetShared(world, e1, material{Name: "stone"})
	kouzou.SetShared(world, e2, material{Name: "stone"})
	if world.SharedIndex(e1, mt) != 1 || world.SharedIndex(e2, mt) != 1 {
		t.Fatalf("Expected both entities on pool index 1, got %d and %d",
			world.SharedIndex(e1, mt), world.SharedIndex(e2, mt))
	}
	pool := kouzou.SharedPoolOf[material](world)
	if pool.RefCount(1) != 2 {
		t.Errorf("Expected ref count 2, got %d", pool.RefCount(1))
	}
	if m, ok := kouzou.GetShared[material](world, e1); !ok || m.Name != "stone" {
		t.Errorf("GetShared returned %+v, %v", m, ok)
	}
	if kouzou.Comp[material](world, e1) != nil {
		t.Error("Comp must not resolve shared components")
	}

	kouzou.SetShared(world, e2, material{Name: "wood"})
	if world.SharedIndex(e2, mt) != 2 || pool.RefCount(1) != 1 {
		t.Errorf("Reassigning must move the reference, index=%d refs=%d",
			world.SharedIndex(e2, mt), pool.RefCount(1))
	}

	world.DestroyEntity(e1)
	if pool.RefCount(1) != 0 {
		t.Errorf("Expected the stone slot to be freed, refs=%d", pool.RefCount(1))
	}
	if pool.Len() != 1 {
		t.Errorf("Expected 1 live pooled value, got %d", pool.Len())
	}

	c := world.Clone(e2)
	if pool.RefCount(2) != 2 {
		t.Errorf("Clone must take a reference, refs=%d", pool.RefCount(2))
	}
	if m, _ := kouzou.GetShared[material](world, c); m.Name != "wood" {
		t.Errorf("Clone resolved %+v", m)
	}
	if kouzou.SetShared(world, e2, Position{}) {
		t.Error("SetShared must reject normal components")
	}

	t.Run("TypedAccessorsRejectShared", func(t *testing.T) {
		e := world.AddEntity(kouzou.TypeOf[Position](world))
		before := world.ArchetypeOf(e)
		if kouzou.GetOrAdd[material](world, e) != nil {
			t.Error("GetOrAdd must not hand out a shared component")
		}
		if kouzou.TryAdd[material](world, e) != nil {
			t.Error("TryAdd must not hand out a shared component")
		}
		if kouzou.Set(world, e, material{Name: "iron"}) {
			t.Error("Set must reject shared components")
		}
		if kouzou.Has[material](world, e) || world.ArchetypeOf(e) != before {
			t.Error("Rejected calls must leave the entity where it was")
		}
	})
}

// go test -run ^TestSharedPoolDedup$ . -count 1
func TestSharedPoolDedup(t *testing.T) {
	pool := kouzou.NewSharedPool[int]()
	i1 := pool.Add(42)
	i2 := pool.Add(42)
	if i1 != i2 || i1 == 0 {
		t.Fatalf("Expected one 1-based index, got %d and %d", i1, i2)
	}
	if pool.RefCount(i1) != 2 {
		t.Errorf("Expected ref count 2, got %d", pool.RefCount(i1))
	}
	if pool.Unref(i1) {
		t.Error("First Unref must not free the slot")
	}
	if v, ok := pool.Get(i1); !ok || v != 42 {
		t.Errorf("Expected 42, got %d, %v", v, ok)
	}
	if !pool.Unref(i1) {
		t.Error("Second Unref must free the slot")
	}
	if _, ok := pool.Get(i1); ok {
		t.Error("Freed slot still resolves")
	}
	if pool.Len() != 0 {
		t.Errorf("Expected an empty pool, got %d", pool.Len())
	}
	if _, ok := pool.Get(0); ok {
		t.Error("Index 0 is the unset index")
	}
}

// go test -run ^TestManaged$ . -count 1
func TestManaged(t *testing.T) {
	pool := kouzou.NewSharedPool[string]()

	t.Run("StaleHandle", func(t *testing.T) {
		m := kouzou.NewManaged(pool, "texture")
		alias := m
		m.Dispose()
		if alias.Valid() {
			t.Error("Handle must be invalid after dispose")
		}
		h := pool.AddHandle("other")
		if h.Index != alias.Handle().Index {
			t.Fatalf("Expected the slot to be reused, got %d", h.Index)
		}
		if alias.Valid() {
			t.Error("Stale handle resolved a reused slot")
		}
		pool.UnrefHandle(h)
	})

	t.Run("EntityLifecycle", func(t *testing.T) {
		world, _, _, _ := setupWorld(t)
		e := world.CreateEntity()
		kouzou.Set(world, e, kouzou.NewManaged(pool, "mesh"))
		m := kouzou.Comp[kouzou.Managed[string]](world, e)
		idx := m.Handle().Index
		if v, ok := m.Get(); !ok || v != "mesh" {
			t.Fatalf("Expected mesh, got %q", v)
		}

		c := world.Clone(e)
		if pool.RefCount(idx) != 2 {
			t.Errorf("Expected 2 references after clone, got %d", pool.RefCount(idx))
		}
		world.DestroyEntity(c)
		if pool.RefCount(idx) != 1 {
			t.Errorf("Expected 1 reference, got %d", pool.RefCount(idx))
		}
		world.DestroyEntity(e)
		if pool.Len() != 0 {
			t.Errorf("Expected the pool to be empty, got %d", pool.Len())
		}
	})

	t.Run("SetReleasesReplacedValue", func(t *testing.T) {
		world, _, _, _ := setupWorld(t)
		e := world.CreateEntity()
		kouzou.Set(world, e, kouzou.NewManaged(pool, "albedo"))
		old := kouzou.Comp[kouzou.Managed[string]](world, e).Handle()
		kouzou.Set(world, e, kouzou.NewManaged(pool, "normal"))
		if pool.RefCount(old.Index) != 0 || pool.Len() != 1 {
			t.Errorf("Expected the replaced value to be released, refs=%d len=%d",
				pool.RefCount(old.Index), pool.Len())
		}
		if v, ok := kouzou.Comp[kouzou.Managed[string]](world, e).Get(); !ok || v != "normal" {
			t.Errorf("Expected normal, got %q", v)
		}
		world.DestroyEntity(e)
		if pool.Len() != 0 {
			t.Errorf("Expected the pool to be empty, got %d", pool.Len())
		}
	})
}

// go test -run ^TestQuery$ . -count 1
func TestQuery(t *testing.T) {
	world, pos, vel, health := setupWorld(t)
	world.AddEntities(2, world.GetArchetype(pos), nil)
	world.AddEntities(3, world.GetArchetype(pos, vel), nil)
	world.AddEntity(vel)
	world.AddEntity(pos, health)

	cases := []struct {
		name  string
		preds []kouzou.Predicate
		want  int
	}{
		{"All", []kouzou.Predicate{kouzou.All(pos)}, 6},
		{"AllTwo", []kouzou.Predicate{kouzou.All(pos, vel)}, 3},
		{"AllNone", []kouzou.Predicate{kouzou.All(pos), kouzou.None(vel)}, 3},
		{"Any", []kouzou.Predicate{kouzou.Any(vel, health)}, 5},
		{"Or", []kouzou.Predicate{kouzou.Or(kouzou.All(vel), kouzou.All(health))}, 5},
		{"Not", []kouzou.Predicate{kouzou.Not(kouzou.Any(pos))}, 1},
		{"And", []kouzou.Predicate{kouzou.And(kouzou.All(pos), kouzou.Not(kouzou.All(health)))}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := world.Select(tc.preds...).Count(); got != tc.want {
				t.Errorf("Expected %d entities, got %d", tc.want, got)
			}
		})
	}

	t.Run("PicksUpNewArchetypes", func(t *testing.T) {
		q := world.Select(kouzou.All(health))
		if q.Count() != 1 {
			t.Fatalf("Expected 1, got %d", q.Count())
		}
		world.AddEntity(health, vel)
		if q.Count() != 2 {
			t.Errorf("Expected 2 after a new archetype, got %d", q.Count())
		}
		if n := len(q.Result()); n != 2 {
			t.Errorf("Expected 2 matching archetypes, got %d", n)
		}
	})

	t.Run("Entities", func(t *testing.T) {
		for _, e := range world.Select(kouzou.All(pos, vel)).Entities() {
			if !world.IsAlive(e) || !kouzou.Has[Velocity](world, e) {
				t.Errorf("Unexpected entity %v", e)
			}
		}
	})
}

// go test -run ^TestFilter$ . -count 1
func TestFilter(t *testing.T) {
	world, pos, _, _ := setupWorld(t)
	movers := kouzou.NewBuilder2[Position, Velocity](world).
		NewEntitiesWithValueSet(4, Position{}, Velocity{VX: 1, VY: 2})
	world.AddEntities(3, world.GetArchetype(pos), nil)

	f := kouzou.NewFilter2[Position, Velocity](world)
	n := 0
	for f.Next() {
		p, v := f.Get()
		p.X += v.VX
		p.Y += v.VY
		if !world.IsAlive(f.Entity()) {
			t.Errorf("Filter yielded a dead entity %v", f.Entity())
		}
		n++
	}
	if n != 4 {
		t.Errorf("Expected 4 entities, got %d", n)
	}
	for _, e := range movers {
		if p := kouzou.Comp[Position](world, e); p.X != 1 || p.Y != 2 {
			t.Errorf("Entity %v was not updated: %+v", e, p)
		}
	}

	all := kouzou.NewFilter[Position](world)
	count := 0
	for all.Next() {
		count++
	}
	if count != 7 {
		t.Errorf("Expected 7 Position entities, got %d", count)
	}
	all.Reset()
	if !all.Next() {
		t.Error("Reset must rewind the filter")
	}

	excl := kouzou.NewFilter[Position](world, kouzou.None(kouzou.TypeOf[Velocity](world)))
	count = 0
	for excl.Next() {
		count++
	}
	if count != 3 {
		t.Errorf("Expected 3 entities without Velocity, got %d", count)
	}

	f3 := kouzou.NewFilter3[Position, Velocity, Health](world)
	if f3.Next() {
		t.Error("Expected no entity with Health")
	}
}

// go test -run ^TestView$ . -count 1
func TestView(t *testing.T) {
	world, _, _, _ := setupWorld(t)
	b := kouzou.NewBuilder2[Position, Velocity](world)
	ents := b.NewEntitiesWithValueSet(10, Position{X: 1}, Velocity{VX: 2})

	ps, vs := kouzou.View2[Position, Velocity](world, b.Archetype())
	if len(ps) != 10 || len(vs) != 10 {
		t.Fatalf("Expected 10 rows, got %d and %d", len(ps), len(vs))
	}
	for i := range ps {
		ps[i].X += vs[i].VX
	}
	if p := kouzou.Comp[Position](world, ents[3]); p.X != 3 {
		t.Errorf("View writes must reach storage, got %+v", p)
	}
	if kouzou.View[Health](world, b.Archetype()) != nil {
		t.Error("Expected a nil view for a missing column")
	}
	if p, v, h := kouzou.View3[Position, Velocity, Health](world, b.Archetype()); p != nil || v != nil || h != nil {
		t.Error("Expected nil views when any column is missing")
	}
}

// go test -run ^TestBuilder$ . -count 1
func TestBuilder(t *testing.T) {
	world, _, _, _ := setupWorld(t)

	b := kouzou.NewBuilder[Position](world)
	e := b.NewEntity()
	if b.Get(e) == nil {
		t.Fatal("Builder entity has no Position")
	}
	if ents := b.NewEntities(5); len(ents) != 5 {
		t.Errorf("Expected 5 entities, got %d", len(ents))
	}
	if b.Archetype().Len() != 6 {
		t.Errorf("Expected 6 rows, got %d", b.Archetype().Len())
	}

	b3 := kouzou.NewBuilder3[Position, Velocity, Health](world)
	ents := b3.NewEntitiesWithValueSet(3, Position{X: 1}, Velocity{VX: 2}, Health{Current: 3, Max: 4})
	for _, e := range ents {
		p, v, h := b3.Get(e)
		if p.X != 1 || v.VX != 2 || h.Max != 4 {
			t.Errorf("Unexpected values %+v %+v %+v", p, v, h)
		}
	}
	if b3.NewEntitiesWithValueSet(0, Position{}, Velocity{}, Health{}) != nil {
		t.Error("Expected nil for zero entities")
	}
}

// go test -run ^TestAddEntities$ . -count 1
func TestAddEntities(t *testing.T) {
	world, pos, vel, _ := setupWorld(t)
	a := world.GetArchetype(pos, vel)
	seen := 0
	ents := world.AddEntities(100, a, func(e kouzou.Entity) {
		seen++
		kouzou.Set(world, e, Velocity{VX: 1})
	})
	if len(ents) != 100 || seen != 100 {
		t.Fatalf("Expected 100 entities and callbacks, got %d and %d", len(ents), seen)
	}
	if a.Len() != 100 {
		t.Errorf("Expected 100 rows, got %d", a.Len())
	}
	if n := world.DestroyEntities(ents[:40]); n != 40 {
		t.Errorf("Expected 40 destroyed, got %d", n)
	}
	if n := world.DestroyEntities(ents[:40]); n != 0 {
		t.Errorf("Destroying twice must be a no-op, got %d", n)
	}
	if world.Len() != 60 {
		t.Errorf("Expected 60 live entities, got %d", world.Len())
	}
}

// go test -run ^TestCommandBuffer$ . -count 1
func TestCommandBuffer(t *testing.T) {
	world, pos, vel, _ := setupWorld(t)
	doomed := world.AddEntity(pos)
	keeper := world.AddEntity(pos)
	cb := world.Commands()

	var spawned kouzou.Entity
	deferred := false
	cb.Destroy(doomed)
	cb.AddComponent(keeper, vel)
	kouzou.SetLater(cb, keeper, Health{Current: 5, Max: 10})
	cb.Spawn([]kouzou.ComponentType{pos}, func(w *kouzou.World, e kouzou.Entity) {
		spawned = e
		kouzou.Set(w, e, Position{X: 9})
	})
	cb.Defer(func(*kouzou.World) { deferred = true })

	if cb.Len() != 5 {
		t.Fatalf("Expected 5 queued commands, got %d", cb.Len())
	}
	if !world.IsAlive(doomed) {
		t.Fatal("Commands must not apply before a flush")
	}
	if n := world.FlushCommands(); n != 5 {
		t.Errorf("Expected 5 applied commands, got %d", n)
	}
	if cb.Len() != 0 {
		t.Errorf("Expected an empty buffer, got %d", cb.Len())
	}
	if world.IsAlive(doomed) {
		t.Error("Destroy was not applied")
	}
	if !kouzou.Has[Velocity](world, keeper) {
		t.Error("AddComponent was not applied")
	}
	if h := kouzou.Comp[Health](world, keeper); h == nil || h.Max != 10 {
		t.Errorf("SetLater was not applied: %+v", h)
	}
	if p := kouzou.Comp[Position](world, spawned); p == nil || p.X != 9 {
		t.Errorf("Spawn init was not applied: %+v", p)
	}
	if !deferred {
		t.Error("Defer did not run")
	}

	t.Run("DeadTarget", func(t *testing.T) {
		cb.AddComponent(doomed, vel)
		cb.RemoveComponent(doomed, pos)
		if n := world.FlushCommands(); n != 2 {
			t.Errorf("Expected 2 commands, got %d", n)
		}
		if world.IsAlive(doomed) {
			t.Error("Commands resurrected a dead entity")
		}
	})

	t.Run("ConcurrentRecording", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					cb.Spawn([]kouzou.ComponentType{vel}, nil)
				}
			}()
		}
		wg.Wait()
		if cb.Len() != 800 {
			t.Fatalf("Expected 800 commands, got %d", cb.Len())
		}
		before := world.Len()
		world.FlushCommands()
		if world.Len() != before+800 {
			t.Errorf("Expected %d entities, got %d", before+800, world.Len())
		}
	})
}

// go test -run ^TestWorldsAndPrefabs$ . -count 1
func TestWorldsAndPrefabs(t *testing.T) {
	worlds := kouzou.NewWorlds(nil)
	mainWorld, err := worlds.Create("main")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worlds.Create("main"); !errors.Is(err, kouzou.ErrWorldExists) {
		t.Errorf("Expected ErrWorldExists, got %v", err)
	}
	ui, _ := worlds.Create("ui")
	if kouzou.TypeOf[Position](mainWorld) != kouzou.TypeOf[Position](ui) {
		t.Error("Worlds of one set must share component ids")
	}
	if got := worlds.Names(); !slices.Equal(got, []string{"main", "ui"}) {
		t.Errorf("Unexpected names %v", got)
	}
	if w, ok := worlds.Get("main"); !ok || w != mainWorld || w.Name() != "main" {
		t.Error("Get returned the wrong world")
	}

	prefabs := kouzou.NewPrefabs()
	unit := kouzou.Prefab{
		Name:  "unit",
		Types: []kouzou.ComponentType{kouzou.TypeOf[Position](mainWorld), kouzou.TypeOf[Health](mainWorld)},
		Init: func(w *kouzou.World, e kouzou.Entity) {
			kouzou.Set(w, e, Health{Current: 10, Max: 10})
		},
	}
	if err := prefabs.Register(unit); err != nil {
		t.Fatal(err)
	}
	if err := prefabs.Register(unit); !errors.Is(err, kouzou.ErrPrefabExists) {
		t.Errorf("Expected ErrPrefabExists, got %v", err)
	}
	if _, err := prefabs.Spawn(mainWorld, "tree", 1); !errors.Is(err, kouzou.ErrUnknownPrefab) {
		t.Errorf("Expected ErrUnknownPrefab, got %v", err)
	}
	ents, err := prefabs.Spawn(mainWorld, "unit", 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range ents {
		if h := kouzou.Comp[Health](mainWorld, e); h == nil || h.Current != 10 {
			t.Errorf("Prefab init not applied to %v", e)
		}
	}

	if !worlds.Remove("main") || worlds.Remove("main") {
		t.Error("Remove must succeed exactly once")
	}
	if mainWorld.Len() != 0 {
		t.Error("Removed world must be cleared")
	}
}
