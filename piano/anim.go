package piano

import (
	"math"
	"time"
)

// Per-key eased animation. Each tick moves progress 15% of the remaining
// distance toward the target and snaps once within epsilon. The rate is
// deliberately per-frame, good enough for a 60Hz visual effect.
const (
	animEpsilon = 0.01
	animRate    = 0.15
	animFPS     = 60
)

type keyAnim struct {
	progress float64
	target   float64 // 0 or 1
}

// setTargetLocked retargets one key and makes sure the driver is running.
// The driver is a start/stop coalescing loop, not a permanent ticker: it
// exits once every key has converged and restarts on the next target change.
func (k *Keyboard) setTargetLocked(note uint8, target float64) {
	if k.anim[note].target != target {
		k.anim[note].target = target
		if !k.animRunning && !k.convergedLocked() {
			k.animRunning = true
			go k.animLoop()
		}
	}
	k.notify()
}

func (k *Keyboard) animLoop() {
	ticker := time.NewTicker(time.Second / animFPS)
	defer ticker.Stop()

	for range ticker.C {
		k.mu.Lock()
		moving := k.stepLocked()
		if !moving {
			k.animRunning = false
		}
		k.mu.Unlock()
		k.notify()
		if !moving {
			return
		}
	}
}

// stepLocked advances every transitioning key one frame and reports whether
// any key still has distance to cover.
func (k *Keyboard) stepLocked() bool {
	moving := false
	for i := range k.anim {
		a := &k.anim[i]
		if math.Abs(a.target-a.progress) > animEpsilon {
			a.progress += (a.target - a.progress) * animRate
			moving = true
		} else if a.progress != a.target {
			a.progress = a.target
		}
	}
	return moving
}

func (k *Keyboard) convergedLocked() bool {
	for i := range k.anim {
		if math.Abs(k.anim[i].target-k.anim[i].progress) > animEpsilon {
			return false
		}
	}
	return true
}

// Animating reports whether the frame driver is currently running.
func (k *Keyboard) Animating() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.animRunning
}
