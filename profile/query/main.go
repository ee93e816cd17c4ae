// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.pprof

package main

import (
	"github.com/edwinsyarief/kouzou"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

type comp4 struct {
	V int64
	W int64
}

func main() {
	rounds := 50
	iters := 10000
	entities := 100000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := kouzou.NewWorld(kouzou.WithInitialCapacity(numEntities))
		kouzou.NewBuilder3[comp1, comp2, comp3](w).NewEntities(numEntities / 2)
		kouzou.NewBuilder3[comp1, comp2, comp4](w).NewEntities(numEntities / 2)

		filter := kouzou.NewFilter2[comp1, comp2](w, kouzou.None(kouzou.TypeOf[comp4](w)))
		query := w.Select(kouzou.All(kouzou.TypeOf[comp1](w), kouzou.TypeOf[comp2](w)))

		for range iters {
			filter.Reset()
			for filter.Next() {
				c1, c2 := filter.Get()
				c1.V += c2.V
				c1.W += c2.W
			}
			for _, a := range query.Result() {
				c1s, c2s := kouzou.View2[comp1, comp2](w, a)
				for i := range c1s {
					c1s[i].V -= c2s[i].W
				}
			}
		}
	}
}
