// Package sim generates synthetic attitude-control telemetry: a seeded
// 3-axis kinematic model with reaction wheels at a nominal speed, Gaussian
// body rate noise, and quaternion integration with renormalization.
//
// Fault injection covers the interesting decision paths: a hard wheel
// overspeed (structural violation), slow per-wheel RPM drift (the subtle
// trend a windowed detector should catch long before the structural limit),
// body rate and quaternion corruption, and malformed wire frames for the
// decode path. The same seed always produces the same stream.
package sim
