package sim

import (
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"time"

	"helios-hq/ceres/pkg/telemetry"
)

// Config controls the synthetic telemetry source.
type Config struct {
	// Seed makes the stream reproducible.
	Seed int64

	// NominalWheelRPM is the steady-state reaction wheel speed.
	NominalWheelRPM float64

	// RateNoiseStdDev is the Gaussian body rate noise in deg/s.
	RateNoiseStdDev float64

	// TickInterval is the simulated sampling period, used both as the
	// integration step and the timestamp increment.
	TickInterval time.Duration
}

// DefaultConfig returns the standard simulator configuration.
func DefaultConfig() Config {
	return Config{
		Seed:            1,
		NominalWheelRPM: 2000,
		RateNoiseStdDev: 0.05,
		TickInterval:    100 * time.Millisecond,
	}
}

// wireFrame is the JSON shape emitted on the wire.
type wireFrame struct {
	TimestampNS  int64                  `json:"timestamp_ns"`
	AttitudeQ    telemetry.Quaternion   `json:"attitude_q"`
	AngularRates telemetry.AngularRates `json:"angular_rates"`
	WheelRPMs    map[string]float64     `json:"rw_rpms"`
}

// Simulator is a seeded synthetic telemetry source. It is safe for use
// from one goroutine at a time per method, with fault injection allowed
// concurrently.
type Simulator struct {
	config Config
	rng    *rand.Rand

	mu     sync.Mutex
	tick   int64
	q      telemetry.Quaternion
	wheels map[string]float64

	drift            map[string]float64 // RPM per second
	rpmFault         map[string]float64 // absolute override
	rateFault        *telemetry.AngularRates
	corruptAttitude  bool
	malformedPending int
}

// New creates a simulator with three wheels at the nominal speed and an
// identity attitude.
func New(config Config) *Simulator {
	if config.NominalWheelRPM == 0 {
		config.NominalWheelRPM = DefaultConfig().NominalWheelRPM
	}
	if config.RateNoiseStdDev == 0 {
		config.RateNoiseStdDev = DefaultConfig().RateNoiseStdDev
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}

	return &Simulator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		q:      telemetry.Quaternion{W: 1},
		wheels: map[string]float64{
			"rw_1": config.NominalWheelRPM,
			"rw_2": config.NominalWheelRPM,
			"rw_3": config.NominalWheelRPM,
		},
		drift:    map[string]float64{},
		rpmFault: map[string]float64{},
	}
}

// Next produces the next wire frame. Injected faults apply until cleared.
func (s *Simulator) Next() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.malformedPending > 0 {
		s.malformedPending--
		return []byte(`{"timestamp_ns": 17, "attitude_q"`)
	}

	s.tick++
	dt := s.config.TickInterval.Seconds()
	ts := s.tick * s.config.TickInterval.Nanoseconds()

	for wheel, rate := range s.drift {
		s.wheels[wheel] += rate * dt
	}

	rates := telemetry.AngularRates{
		Roll:  s.rng.NormFloat64() * s.config.RateNoiseStdDev,
		Pitch: s.rng.NormFloat64() * s.config.RateNoiseStdDev,
		Yaw:   s.rng.NormFloat64() * s.config.RateNoiseStdDev,
	}
	if s.rateFault != nil {
		rates = *s.rateFault
	}

	s.integrate(rates, dt)

	q := s.q
	if s.corruptAttitude {
		q.W *= 1.05
		q.X *= 1.05
		q.Y *= 1.05
		q.Z *= 1.05
	}

	rpms := make(map[string]float64, len(s.wheels))
	for wheel, rpm := range s.wheels {
		rpms[wheel] = rpm
	}
	for wheel, rpm := range s.rpmFault {
		rpms[wheel] = rpm
	}

	frame := wireFrame{
		TimestampNS:  ts,
		AttitudeQ:    q,
		AngularRates: rates,
		WheelRPMs:    rpms,
	}

	data, err := json.Marshal(frame)
	if err != nil {
		// Only reachable with non-finite floats; surface as a decode
		// failure downstream rather than panic.
		return []byte("{}")
	}
	return data
}

// integrate advances the attitude quaternion by the body rates over dt and
// renormalizes.
func (s *Simulator) integrate(rates telemetry.AngularRates, dt float64) {
	const degToRad = math.Pi / 180

	wx := rates.Roll * degToRad
	wy := rates.Pitch * degToRad
	wz := rates.Yaw * degToRad

	q := s.q
	dq := telemetry.Quaternion{
		W: 0.5 * (-q.X*wx - q.Y*wy - q.Z*wz),
		X: 0.5 * (q.W*wx + q.Y*wz - q.Z*wy),
		Y: 0.5 * (q.W*wy - q.X*wz + q.Z*wx),
		Z: 0.5 * (q.W*wz + q.X*wy - q.Y*wx),
	}

	q.W += dq.W * dt
	q.X += dq.X * dt
	q.Y += dq.Y * dt
	q.Z += dq.Z * dt

	norm := q.Norm()
	if norm == 0 {
		s.q = telemetry.Quaternion{W: 1}
		return
	}
	s.q = telemetry.Quaternion{W: q.W / norm, X: q.X / norm, Y: q.Y / norm, Z: q.Z / norm}
}

// InjectRPMFault pins a wheel's reported speed to an absolute value.
func (s *Simulator) InjectRPMFault(wheel string, rpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpmFault[wheel] = rpm
}

// InjectDrift makes a wheel's true speed climb at rpmPerSecond. A slow
// drift stays inside structural limits for a long time while steadily
// trending away from nominal.
func (s *Simulator) InjectDrift(wheel string, rpmPerSecond float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drift[wheel] = rpmPerSecond
}

// InjectRateFault replaces the noisy body rates with fixed values.
func (s *Simulator) InjectRateFault(roll, pitch, yaw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateFault = &telemetry.AngularRates{Roll: roll, Pitch: pitch, Yaw: yaw}
}

// CorruptAttitude denormalizes the reported quaternion until cleared.
func (s *Simulator) CorruptAttitude() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corruptAttitude = true
}

// EmitMalformed makes the next n frames syntactically invalid JSON.
func (s *Simulator) EmitMalformed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformedPending = n
}

// ClearFaults restores nominal behavior. Drifted wheel speeds snap back to
// the nominal RPM.
func (s *Simulator) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drift = map[string]float64{}
	s.rpmFault = map[string]float64{}
	s.rateFault = nil
	s.corruptAttitude = false
	s.malformedPending = 0
	for wheel := range s.wheels {
		s.wheels[wheel] = s.config.NominalWheelRPM
	}
}
