package physics

import (
	"image/color"
	"math"
)

// Mode is the dismissal animation state.
type Mode int

const (
	Idle Mode = iota
	Smashing
	DragOut
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Smashing:
		return "smashing"
	case DragOut:
		return "drag-out"
	default:
		return "unknown"
	}
}

// Rand is the randomness source for particle bursts. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Particle is one dust or sparkle speck.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Life   float64 // 1 at spawn, removed at <= 0
	Size   float64
	Color  color.RGBA
}

// CursorPhysics is the animated cursor icon state shared by the spring,
// the smash sequence and the particle system.
type CursorPhysics struct {
	X, Y         float64
	Tilt         float64 // degrees
	TiltVelocity float64
	Squish       float64 // 1 = rest, <1 squashed, >1 stretched
	BristleBend  float64
	Mode         Mode
	StateTimer   int
	Particles    []Particle
}

// New returns a resting cursor.
func New() CursorPhysics {
	return CursorPhysics{Squish: 1}
}

// Clone deep-copies the particle slice.
func (p CursorPhysics) Clone() CursorPhysics {
	if p.Particles != nil {
		p.Particles = append([]Particle(nil), p.Particles...)
	}
	return p
}

// MoveTo records the pointer position and turns horizontal motion into an
// angular impulse on the spring.
func (p *CursorPhysics) MoveTo(x, y float64, t Tuning) {
	dx := x - p.X
	p.X, p.Y = x, y
	p.Impulse(dx, t)
}

// Impulse adds a horizontal pointer delta to the tilt velocity.
func (p *CursorPhysics) Impulse(dx float64, t Tuning) {
	if p.Mode != Idle {
		return
	}
	kick := clampAbs(dx*t.ImpulseScale, t.MaxImpulse)
	p.TiltVelocity = clampAbs(p.TiltVelocity+kick, t.MaxImpulse)
}

// BeginSmash starts the dismissal sequence. It returns false when a sequence
// is already running.
func (p *CursorPhysics) BeginSmash() bool {
	if p.Mode != Idle {
		return false
	}
	p.Mode = Smashing
	p.StateTimer = 0
	return true
}

// BeginDragOut skips straight to the fade-out phase.
func (p *CursorPhysics) BeginDragOut() bool {
	if p.Mode == DragOut {
		return false
	}
	p.Mode = DragOut
	p.StateTimer = 0
	return true
}

// Animating reports whether another Step would change anything visible.
func (p *CursorPhysics) Animating() bool {
	return p.Mode != Idle ||
		len(p.Particles) > 0 ||
		math.Abs(p.Tilt) > 0.05 ||
		math.Abs(p.TiltVelocity) > 0.05 ||
		math.Abs(p.Squish-1) > 0.005
}

// Step advances one animation tick. It returns true on the smash impact frame.
func (p *CursorPhysics) Step(t Tuning, r Rand) bool {
	impact := false

	switch p.Mode {
	case Idle:
		p.stepSpring(t)
		p.Squish = p.Squish*(1-t.IdleRelax) + 1*t.IdleRelax

	case Smashing:
		switch {
		case p.StateTimer < t.ImpactFrame:
			p.Squish = t.WindupSquish
			p.Tilt -= t.WindupTiltStep
		case p.StateTimer == t.ImpactFrame:
			p.Squish = t.ImpactSquish
			p.Tilt = 0
			p.TiltVelocity = 0
			p.spawnBurst(t.SmashParticles, t, r, smashParticle)
			impact = true
		case p.StateTimer > t.DragOutFrame:
			p.Mode = DragOut
			p.StateTimer = 0
			return false
		}
		p.Tilt = clampAbs(p.Tilt, t.MaxTilt)
		p.StateTimer++

	case DragOut:
		p.stepSpring(t)
		p.Squish = p.Squish*(1-t.StretchRelax) + t.StretchSquish*t.StretchRelax
		p.StateTimer++
	}

	p.BristleBend = p.BristleBend*t.BendLag + (p.Tilt/10)*(1-t.BendLag)
	p.Particles = StepParticles(p.Particles, t)
	return impact
}

func (p *CursorPhysics) stepSpring(t Tuning) {
	p.TiltVelocity += -t.Stiffness * p.Tilt
	p.TiltVelocity *= t.Damping
	p.Tilt += p.TiltVelocity
	p.Tilt = clampAbs(p.Tilt, t.MaxTilt)
}

// SpawnCopyBurst emits the positive-feedback sparkles at the pointer.
func (p *CursorPhysics) SpawnCopyBurst(t Tuning, r Rand) {
	p.spawnBurst(t.CopyParticles, t, r, sparkleParticle)
}

type particleFactory func(x, y float64, r Rand) Particle

func (p *CursorPhysics) spawnBurst(n int, t Tuning, r Rand, newParticle particleFactory) {
	for i := 0; i < n; i++ {
		if t.MaxParticles > 0 && len(p.Particles) >= t.MaxParticles {
			return
		}
		p.Particles = append(p.Particles, newParticle(p.X, p.Y, r))
	}
}

var (
	dustColor    = color.RGBA{R: 0xDD, G: 0xDD, B: 0xDD, A: 0xFF}
	sparkleColor = color.RGBA{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF}
)

func smashParticle(x, y float64, r Rand) Particle {
	return Particle{
		X:     x + between(r, -10, 10),
		Y:     y + 20,
		VX:    between(r, -8, 8),
		VY:    between(r, -8, -2),
		Life:  1,
		Size:  between(r, 2, 5),
		Color: dustColor,
	}
}

func sparkleParticle(x, y float64, r Rand) Particle {
	return Particle{
		X:     x,
		Y:     y,
		VX:    between(r, -2, 2),
		VY:    between(r, -5, -2),
		Life:  1,
		Size:  between(r, 1, 3),
		Color: sparkleColor,
	}
}

// StepParticles integrates one tick and drops dead particles in place.
func StepParticles(ps []Particle, t Tuning) []Particle {
	alive := ps[:0]
	for _, pt := range ps {
		pt.X += pt.VX
		pt.Y += pt.VY
		pt.VY += t.Gravity
		pt.VX *= t.Drag
		pt.Life -= t.LifeDecay
		if pt.Life > 0 {
			alive = append(alive, pt)
		}
	}
	if len(alive) == 0 {
		return nil
	}
	return alive
}

// Fade lowers alpha by one drag-out step. done is true once the floor is
// reached, at which point alpha is 0.
func Fade(alpha uint8, t Tuning) (next uint8, done bool) {
	if alpha <= t.AlphaFloor {
		return 0, true
	}
	if alpha <= t.AlphaStep {
		return 0, true
	}
	return alpha - t.AlphaStep, false
}

func between(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func clampAbs(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	return math.Max(-limit, math.Min(limit, v))
}
