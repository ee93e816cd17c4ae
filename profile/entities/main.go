// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/edwinsyarief/kouzou"
	"github.com/pkg/profile"
)

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

type lifetime struct {
	Ticks int
}

func main() {
	rounds := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

// run churns entities through spawn, migration and destruction so the
// allocation profile covers slot reuse and archetype moves.
func run(rounds, iters, numEntities int) {
	for range rounds {
		w := kouzou.NewWorld(kouzou.WithInitialCapacity(numEntities))
		batch := kouzou.NewBuilder2[position, velocity](w)
		query := kouzou.NewFilter2[position, velocity](w)
		entities := make([]kouzou.Entity, 0, numEntities)

		for range iters {
			batch.NewEntitiesWithValueSet(numEntities, position{}, velocity{X: 1, Y: 1})
			entities = entities[:0]
			query.Reset()
			for query.Next() {
				pos, vel := query.Get()
				pos.X += vel.X
				pos.Y += vel.Y
				entities = append(entities, query.Entity())
			}
			for _, e := range entities[:len(entities)/2] {
				kouzou.Set(w, e, lifetime{Ticks: 1})
			}
			w.DestroyEntities(entities)
		}
	}
}
