package kouzou

import (
	"testing"
)

var busSizes = []int{1, 10, 100}

func BenchmarkEventBusPublish(b *testing.B) {
	for _, handlers := range busSizes {
		b.Run(benchName(handlers), func(b *testing.B) {
			bus := &EventBus{}
			for range handlers {
				Subscribe(bus, func(tickDone) {})
			}
			ev := tickDone{Tick: 1}
			b.ReportAllocs()
			for b.Loop() {
				Publish(bus, ev)
			}
		})
	}
}

func BenchmarkEventBusPublishUnobserved(b *testing.B) {
	bus := &EventBus{}
	Subscribe(bus, func(collision) {})
	b.ReportAllocs()
	for b.Loop() {
		Publish(bus, tickDone{})
	}
}

// Cost of the created/destroyed events on the entity lifecycle.
func BenchmarkWorldEvents(b *testing.B) {
	for _, handlers := range busSizes {
		b.Run(benchName(handlers), func(b *testing.B) {
			w := NewWorld()
			pos := TypeOf[busPosition](w)
			for range handlers {
				Subscribe(w.Events(), func(EntityCreated) {})
				Subscribe(w.Events(), func(EntityDestroyed) {})
			}
			b.ReportAllocs()
			for b.Loop() {
				w.DestroyEntity(w.AddEntity(pos))
			}
		})
	}
}
