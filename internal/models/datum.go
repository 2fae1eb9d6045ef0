package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DatumChoice names the populated variant of a log record's datum.
// The names follow the BACnetLogRecord logDatum choices.
type DatumChoice string

const (
	ChoiceLogStatus  DatumChoice = "logStatus"
	ChoiceBoolean    DatumChoice = "booleanValue"
	ChoiceReal       DatumChoice = "realValue"
	ChoiceEnumerated DatumChoice = "enumValue"
	ChoiceUnsigned   DatumChoice = "unsignedValue"
	ChoiceSigned     DatumChoice = "signedValue"
	ChoiceBitString  DatumChoice = "bitstringValue"
	ChoiceNull       DatumChoice = "nullValue"
	ChoiceFailure    DatumChoice = "failure"
	ChoiceTimeChange DatumChoice = "timeChange"
	ChoiceAny        DatumChoice = "anyValue"
)

// LogDatum is the payload of a decoded log record. Exactly one variant type
// exists per choice; the set is closed to this package.
type LogDatum interface {
	Choice() DatumChoice
	// Value returns the scalar payload (type-erased).
	Value() any
	isLogDatum()
}

// LogStatus is the logStatus bit string of a trend log buffer.
type LogStatus struct {
	LogDisabled    bool `json:"logDisabled" yaml:"log_disabled" msgpack:"logDisabled"`
	BufferPurged   bool `json:"bufferPurged" yaml:"buffer_purged" msgpack:"bufferPurged"`
	LogInterrupted bool `json:"logInterrupted" yaml:"log_interrupted" msgpack:"logInterrupted"`
}

// FailureDatum records that the monitored property could not be read.
type FailureDatum struct {
	ErrorClass uint32 `json:"errorClass" yaml:"error_class" msgpack:"errorClass"`
	ErrorCode  uint32 `json:"errorCode" yaml:"error_code" msgpack:"errorCode"`
}

type (
	BooleanDatum    bool
	RealDatum       float32
	EnumeratedDatum uint32
	UnsignedDatum   uint64
	SignedDatum     int64
	BitStringDatum  []bool
	NullDatum       struct{}
	// TimeChangeDatum is the clock adjustment in seconds.
	TimeChangeDatum float32
	// AnyDatum holds the still-encoded application data of an anyValue record.
	AnyDatum []byte
)

func (LogStatus) Choice() DatumChoice       { return ChoiceLogStatus }
func (BooleanDatum) Choice() DatumChoice    { return ChoiceBoolean }
func (RealDatum) Choice() DatumChoice       { return ChoiceReal }
func (EnumeratedDatum) Choice() DatumChoice { return ChoiceEnumerated }
func (UnsignedDatum) Choice() DatumChoice   { return ChoiceUnsigned }
func (SignedDatum) Choice() DatumChoice     { return ChoiceSigned }
func (BitStringDatum) Choice() DatumChoice  { return ChoiceBitString }
func (NullDatum) Choice() DatumChoice       { return ChoiceNull }
func (FailureDatum) Choice() DatumChoice    { return ChoiceFailure }
func (TimeChangeDatum) Choice() DatumChoice { return ChoiceTimeChange }
func (AnyDatum) Choice() DatumChoice        { return ChoiceAny }

func (d LogStatus) Value() any       { return d }
func (d BooleanDatum) Value() any    { return bool(d) }
func (d RealDatum) Value() any       { return float32(d) }
func (d EnumeratedDatum) Value() any { return uint32(d) }
func (d UnsignedDatum) Value() any   { return uint64(d) }
func (d SignedDatum) Value() any     { return int64(d) }
func (d BitStringDatum) Value() any  { return append([]bool(nil), d...) }
func (NullDatum) Value() any         { return nil }
func (d FailureDatum) Value() any    { return d }
func (d TimeChangeDatum) Value() any { return float32(d) }
func (d AnyDatum) Value() any        { return append([]byte(nil), d...) }

func (LogStatus) isLogDatum()       {}
func (BooleanDatum) isLogDatum()    {}
func (RealDatum) isLogDatum()       {}
func (EnumeratedDatum) isLogDatum() {}
func (UnsignedDatum) isLogDatum()   {}
func (SignedDatum) isLogDatum()     {}
func (BitStringDatum) isLogDatum()  {}
func (NullDatum) isLogDatum()       {}
func (FailureDatum) isLogDatum()    {}
func (TimeChangeDatum) isLogDatum() {}
func (AnyDatum) isLogDatum()        {}

// RawLogDatum is the datum as delivered by a collaborator: one optional field per
// variant, of which exactly one is expected to be set. Slice variants count as
// populated when non-nil, so an empty bit string or byte string is still a value.
// In JSON the null variant is written "nullValue": null (or {}).
type RawLogDatum struct {
	LogStatus  *LogStatus    `json:"logStatus,omitempty" yaml:"log_status,omitempty"`
	Boolean    *bool         `json:"booleanValue,omitempty" yaml:"boolean,omitempty"`
	Real       *float32      `json:"realValue,omitempty" yaml:"real,omitempty"`
	Enumerated *uint32       `json:"enumValue,omitempty" yaml:"enumerated,omitempty"`
	Unsigned   *uint64       `json:"unsignedValue,omitempty" yaml:"unsigned,omitempty"`
	Signed     *int64        `json:"signedValue,omitempty" yaml:"signed,omitempty"`
	BitString  []bool        `json:"bitstringValue" yaml:"bitstring,omitempty"`
	Null       *NullDatum    `json:"nullValue,omitempty" yaml:"null_value,omitempty"`
	Failure    *FailureDatum `json:"failure,omitempty" yaml:"failure,omitempty"`
	TimeChange *float32      `json:"timeChange,omitempty" yaml:"time_change,omitempty"`
	Any        []byte        `json:"anyValue" yaml:"any,omitempty"`
}

// UnmarshalJSON records an explicit "nullValue": null as the null variant.
func (r *RawLogDatum) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	type plain RawLogDatum
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Null == nil {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err != nil {
			return err
		}
		if _, ok := keys["nullValue"]; ok {
			p.Null = &NullDatum{}
		}
	}
	*r = RawLogDatum(p)
	return nil
}

// Populated lists the choices that carry a value, in declaration order.
func (r RawLogDatum) Populated() []DatumChoice {
	var out []DatumChoice
	add := func(set bool, c DatumChoice) {
		if set {
			out = append(out, c)
		}
	}
	add(r.LogStatus != nil, ChoiceLogStatus)
	add(r.Boolean != nil, ChoiceBoolean)
	add(r.Real != nil, ChoiceReal)
	add(r.Enumerated != nil, ChoiceEnumerated)
	add(r.Unsigned != nil, ChoiceUnsigned)
	add(r.Signed != nil, ChoiceSigned)
	add(r.BitString != nil, ChoiceBitString)
	add(r.Null != nil, ChoiceNull)
	add(r.Failure != nil, ChoiceFailure)
	add(r.TimeChange != nil, ChoiceTimeChange)
	add(r.Any != nil, ChoiceAny)
	return out
}

// Datum resolves the raw union into its typed variant.
// It reports false unless exactly one variant is populated.
func (r RawLogDatum) Datum() (LogDatum, bool) {
	populated := r.Populated()
	if len(populated) != 1 {
		return nil, false
	}
	switch populated[0] {
	case ChoiceLogStatus:
		return *r.LogStatus, true
	case ChoiceBoolean:
		return BooleanDatum(*r.Boolean), true
	case ChoiceReal:
		return RealDatum(*r.Real), true
	case ChoiceEnumerated:
		return EnumeratedDatum(*r.Enumerated), true
	case ChoiceUnsigned:
		return UnsignedDatum(*r.Unsigned), true
	case ChoiceSigned:
		return SignedDatum(*r.Signed), true
	case ChoiceBitString:
		return BitStringDatum(append([]bool{}, r.BitString...)), true
	case ChoiceNull:
		return NullDatum{}, true
	case ChoiceFailure:
		return *r.Failure, true
	case ChoiceTimeChange:
		return TimeChangeDatum(*r.TimeChange), true
	case ChoiceAny:
		return AnyDatum(append([]byte{}, r.Any...)), true
	}
	return nil, false
}

// RawDatumOf builds the collaborator form of a typed datum.
func RawDatumOf(d LogDatum) RawLogDatum {
	var r RawLogDatum
	switch v := d.(type) {
	case LogStatus:
		r.LogStatus = &v
	case BooleanDatum:
		b := bool(v)
		r.Boolean = &b
	case RealDatum:
		f := float32(v)
		r.Real = &f
	case EnumeratedDatum:
		e := uint32(v)
		r.Enumerated = &e
	case UnsignedDatum:
		u := uint64(v)
		r.Unsigned = &u
	case SignedDatum:
		s := int64(v)
		r.Signed = &s
	case BitStringDatum:
		r.BitString = append([]bool{}, v...)
	case NullDatum:
		r.Null = &NullDatum{}
	case FailureDatum:
		r.Failure = &v
	case TimeChangeDatum:
		f := float32(v)
		r.TimeChange = &f
	case AnyDatum:
		r.Any = append([]byte{}, v...)
	default:
		panic(fmt.Sprintf("models: unknown log datum %T", d))
	}
	return r
}
