package hotplug

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestBringUpFillsLowestMissingFirst(t *testing.T) {
	plat := newFakePlatform(6, 1)
	plat.online[3] = true
	a := actuator{hp: plat, log: logr.Discard()}

	assert.Equal(t, 3, a.bringUp(5))
	assert.Equal(t, []string{"online 1", "online 2", "online 4"}, plat.Calls())
}

func TestBringUpStopsAtTopology(t *testing.T) {
	plat := newFakePlatform(2, 1)
	a := actuator{hp: plat, log: logr.Discard()}

	assert.Equal(t, 1, a.bringUp(4))
	assert.Equal(t, 0, a.bringUp(4))
	assert.Equal(t, []string{"online 1"}, plat.Calls())
}

func TestTakeDownNeverTouchesCoreZero(t *testing.T) {
	for online := 1; online <= 4; online++ {
		plat := newFakePlatform(4, online)
		a := actuator{hp: plat, log: logr.Discard()}

		a.takeDownAbove(-1)
		a.takeDownAbove(0)
		assert.True(t, plat.IsOnline(0))
		for _, call := range plat.Calls() {
			assert.NotEqual(t, "offline 0", call)
		}
	}
}

func TestTakeDownHighestFirstSkipsOffline(t *testing.T) {
	plat := newFakePlatform(5, 5)
	plat.online[3] = false
	a := actuator{hp: plat, log: logr.Discard()}

	assert.Equal(t, 2, a.takeDownAbove(1))
	assert.Equal(t, []string{"offline 4", "offline 2"}, plat.Calls())
}

func TestActuatorCountsFailures(t *testing.T) {
	plat := newFakePlatform(4, 4)
	plat.fail["offline 2"] = assert.AnError
	a := actuator{hp: plat, log: logr.Discard()}

	assert.Equal(t, 2, a.takeDownAbove(0))
	assert.Equal(t, []string{"offline 3", "offline 2", "offline 1"}, plat.Calls())
	assert.True(t, plat.IsOnline(2))
}
