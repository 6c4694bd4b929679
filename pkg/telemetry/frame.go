package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Section names used in wire frames and in violation field paths.
const (
	SectionAttitude     = "attitude_q"
	SectionAngularRates = "angular_rates"
	SectionWheelRPMs    = "rw_rpms"
)

// Quaternion is a 4-component attitude quaternion. A valid attitude solution
// has a Euclidean norm of 1.0 within the tolerance enforced by the
// constraint layer.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean norm of the quaternion.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// AngularRates holds the 3-axis gyroscope angular rates in deg/s.
type AngularRates struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Frame is a single decoded telemetry tick. Sections that failed to decode
// are nil, with the failure reason recorded in SectionErrors keyed by
// section name. A frame is transient: it is produced once per tick, owned by
// the caller, and never mutated after decoding.
type Frame struct {
	// TimestampNS is the monotonic frame timestamp in nanoseconds.
	// Zero if the wire frame carried no usable timestamp.
	TimestampNS int64 `json:"timestamp_ns"`

	// Attitude is the decoded attitude quaternion, nil if the section was
	// missing or malformed.
	Attitude *Quaternion `json:"attitude_q,omitempty"`

	// Rates are the decoded angular rates, nil if the section was missing
	// or malformed.
	Rates *AngularRates `json:"angular_rates,omitempty"`

	// WheelRPMs maps wheel identifiers to RPM readings, nil if the section
	// was missing or malformed.
	WheelRPMs map[string]float64 `json:"rw_rpms,omitempty"`

	// SectionErrors records, per section name, why a section could not be
	// decoded. Empty for a structurally complete frame.
	SectionErrors map[string]string `json:"-"`
}

// Complete reports whether every safety-relevant section decoded cleanly.
func (f *Frame) Complete() bool {
	return len(f.SectionErrors) == 0
}

// WheelIDs returns the wheel identifiers in deterministic (sorted) order.
func (f *Frame) WheelIDs() []string {
	ids := make([]string, 0, len(f.WheelRPMs))
	for id := range f.WheelRPMs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// rawFrame is the outer wire shape. Sections are captured as raw JSON so a
// malformed section cannot abort decoding of its siblings.
type rawFrame struct {
	TimestampNS json.RawMessage `json:"timestamp_ns"`
	AttitudeQ   json.RawMessage `json:"attitude_q"`
	Rates       json.RawMessage `json:"angular_rates"`
	WheelRPMs   json.RawMessage `json:"rw_rpms"`
}

// Decode parses a raw wire frame. It returns an error only when the outer
// payload is not a JSON object at all; section-level problems are recorded
// in the returned Frame's SectionErrors so the caller can fail closed per
// field instead of per frame.
func Decode(raw []byte) (*Frame, error) {
	var rf rawFrame
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("telemetry frame is not a JSON object: %w", err)
	}

	frame := &Frame{SectionErrors: map[string]string{}}

	if rf.TimestampNS != nil {
		// A bad timestamp does not invalidate the frame; the decision
		// record simply carries no source timestamp.
		var ts int64
		if err := json.Unmarshal(rf.TimestampNS, &ts); err == nil {
			frame.TimestampNS = ts
		}
	}

	frame.Attitude = decodeQuaternion(rf.AttitudeQ, frame.SectionErrors)
	frame.Rates = decodeRates(rf.Rates, frame.SectionErrors)
	frame.WheelRPMs = decodeWheels(rf.WheelRPMs, frame.SectionErrors)

	return frame, nil
}

func decodeQuaternion(raw json.RawMessage, errs map[string]string) *Quaternion {
	fields, ok := decodeNumericSection(SectionAttitude, raw, errs)
	if !ok {
		return nil
	}
	if !requireKeys(SectionAttitude, fields, errs, "w", "x", "y", "z") {
		return nil
	}
	return &Quaternion{W: fields["w"], X: fields["x"], Y: fields["y"], Z: fields["z"]}
}

func decodeRates(raw json.RawMessage, errs map[string]string) *AngularRates {
	fields, ok := decodeNumericSection(SectionAngularRates, raw, errs)
	if !ok {
		return nil
	}
	if !requireKeys(SectionAngularRates, fields, errs, "roll", "pitch", "yaw") {
		return nil
	}
	return &AngularRates{Roll: fields["roll"], Pitch: fields["pitch"], Yaw: fields["yaw"]}
}

func decodeWheels(raw json.RawMessage, errs map[string]string) map[string]float64 {
	fields, ok := decodeNumericSection(SectionWheelRPMs, raw, errs)
	if !ok {
		return nil
	}
	if len(fields) == 0 {
		errs[SectionWheelRPMs] = "section contains no wheel readings"
		return nil
	}
	return fields
}

// decodeNumericSection decodes a section into a name→number map. Any
// non-numeric member, or a missing section, fails the whole section.
func decodeNumericSection(name string, raw json.RawMessage, errs map[string]string) (map[string]float64, bool) {
	if raw == nil {
		errs[name] = "section missing from frame"
		return nil, false
	}
	var fields map[string]float64
	if err := json.Unmarshal(raw, &fields); err != nil {
		errs[name] = fmt.Sprintf("section is not a numeric object: %v", err)
		return nil, false
	}
	return fields, true
}

func requireKeys(section string, fields map[string]float64, errs map[string]string, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			errs[section] = fmt.Sprintf("required field %q missing", k)
			return false
		}
	}
	return true
}
