// Package models contains domain types for the Trend Log Viewer.
package models

import "strings"

// StatusFlags are the four BACnet quality indicators attached to a value.
// The zero value has every flag cleared.
type StatusFlags struct {
	InAlarm      bool `json:"inAlarm" yaml:"in_alarm" msgpack:"inAlarm"`
	Fault        bool `json:"fault" yaml:"fault" msgpack:"fault"`
	Overridden   bool `json:"overridden" yaml:"overridden" msgpack:"overridden"`
	OutOfService bool `json:"outOfService" yaml:"out_of_service" msgpack:"outOfService"`
}

// StatusFlagsFromBits builds flags from a BACnet statusFlags bit string.
// Bit order is in-alarm, fault, overridden, out-of-service; missing bits are false.
func StatusFlagsFromBits(bits []bool) StatusFlags {
	var f StatusFlags
	at := func(i int) bool { return i < len(bits) && bits[i] }
	f.InAlarm = at(0)
	f.Fault = at(1)
	f.Overridden = at(2)
	f.OutOfService = at(3)
	return f
}

// Bits returns the flags as a four element BACnet bit string.
func (f StatusFlags) Bits() []bool {
	return []bool{f.InAlarm, f.Fault, f.Overridden, f.OutOfService}
}

// Any reports whether at least one flag is set.
func (f StatusFlags) Any() bool {
	return f.InAlarm || f.Fault || f.Overridden || f.OutOfService
}

// String renders the set flags, e.g. "in_alarm|fault", or "normal" when none are set.
func (f StatusFlags) String() string {
	var parts []string
	if f.InAlarm {
		parts = append(parts, "in_alarm")
	}
	if f.Fault {
		parts = append(parts, "fault")
	}
	if f.Overridden {
		parts = append(parts, "overridden")
	}
	if f.OutOfService {
		parts = append(parts, "out_of_service")
	}
	if len(parts) == 0 {
		return "normal"
	}
	return strings.Join(parts, "|")
}
