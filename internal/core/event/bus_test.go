package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversNextTickInOrder(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e StageLoaded) { got = append(got, e.StageID) })

	Emit(b, StageLoaded{StageID: 1})
	Emit(b, StageLoaded{StageID: 2})
	assert.Equal(t, 2, b.Pending())

	b.DispatchAll()
	assert.Empty(t, got, "nothing is delivered before the swap")

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []int{1, 2}, got)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []int{1, 2}, got, "events are delivered once")
}

func TestBus_RoutesByType(t *testing.T) {
	b := NewBus()
	var stages, deaths int
	Subscribe(b, func(StageLoaded) { stages++ })
	Subscribe(b, func(NpcDied) { deaths++ })

	Emit(b, NpcDied{Type: 3})
	Emit(b, ScriptsReloaded{Scripts: 1})
	b.SwapBuffers()
	b.DispatchAll()

	assert.Equal(t, 0, stages)
	assert.Equal(t, 1, deaths)
}
