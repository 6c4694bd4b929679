// Package telemetry defines the attitude-control telemetry frame model and
// its fail-closed wire decoding.
//
// A Frame carries one tick of sensor state: a nanosecond timestamp, the
// attitude quaternion, the 3-axis angular rates, and the named reaction
// wheel RPM readings. Decoding is two-stage: the outer JSON object is
// decoded first, then each safety-relevant section is decoded independently.
// A section that is missing or does not have the expected numeric shape is
// recorded in Frame.SectionErrors instead of being silently skipped, so the
// constraint layer can treat absent data as a violation rather than a pass.
package telemetry
