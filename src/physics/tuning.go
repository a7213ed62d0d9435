package physics

// Tuning holds the animation constants. They are presets, not contracts:
// tests pin DefaultTuning but callers may adjust any of them.
type Tuning struct {
	Stiffness    float64
	Damping      float64
	MaxTilt      float64 // degrees
	ImpulseScale float64
	MaxImpulse   float64
	BendLag      float64 // weight of the previous bend value
	IdleRelax    float64
	StretchRelax float64

	ImpactFrame    int
	DragOutFrame   int
	WindupSquish   float64
	WindupTiltStep float64
	ImpactSquish   float64
	StretchSquish  float64

	SmashParticles int
	CopyParticles  int
	MaxParticles   int
	Gravity        float64
	Drag           float64
	LifeDecay      float64

	AlphaStep  uint8
	AlphaFloor uint8
}

// DefaultTuning returns the stock feel of the overlay cursor.
func DefaultTuning() Tuning {
	return Tuning{
		Stiffness:    0.15,
		Damping:      0.85,
		MaxTilt:      22.5,
		ImpulseScale: 0.8,
		MaxImpulse:   15,
		BendLag:      0.8,
		IdleRelax:    0.1,
		StretchRelax: 0.2,

		ImpactFrame:    4,
		DragOutFrame:   8,
		WindupSquish:   0.9,
		WindupTiltStep: 5,
		ImpactSquish:   0.4,
		StretchSquish:  1.2,

		SmashParticles: 15,
		CopyParticles:  8,
		MaxParticles:   64,
		Gravity:        0.5,
		Drag:           0.92,
		LifeDecay:      0.03,

		AlphaStep:  15,
		AlphaFloor: 10,
	}
}
