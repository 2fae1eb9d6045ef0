package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectIdentifier names a BACnet object, e.g. trendLog:1.
type ObjectIdentifier struct {
	Type     string `json:"type" yaml:"type"`
	Instance uint32 `json:"instance" yaml:"instance"`
}

// String renders the identifier as "type:instance".
func (o ObjectIdentifier) String() string {
	return fmt.Sprintf("%s:%d", o.Type, o.Instance)
}

// ParseObjectIdentifier parses "type:instance" (also accepts "type,instance").
func ParseObjectIdentifier(s string) (ObjectIdentifier, error) {
	sep := strings.IndexAny(s, ":,")
	if sep <= 0 || sep == len(s)-1 {
		return ObjectIdentifier{}, fmt.Errorf("invalid object identifier: %q", s)
	}
	instance, err := strconv.ParseUint(strings.TrimSpace(s[sep+1:]), 10, 22)
	if err != nil {
		return ObjectIdentifier{}, fmt.Errorf("invalid object instance in %q: %w", s, err)
	}
	return ObjectIdentifier{
		Type:     strings.TrimSpace(s[:sep]),
		Instance: uint32(instance),
	}, nil
}

// PropertyIdentifier names a BACnet property.
type PropertyIdentifier string

const (
	PropObjectName              PropertyIdentifier = "objectName"
	PropDescription             PropertyIdentifier = "description"
	PropRecordCount             PropertyIdentifier = "recordCount"
	PropBufferSize              PropertyIdentifier = "bufferSize"
	PropTotalRecordCount        PropertyIdentifier = "totalRecordCount"
	PropLogDeviceObjectProperty PropertyIdentifier = "logDeviceObjectProperty"
	PropStatusFlags             PropertyIdentifier = "statusFlags"
	PropLogBuffer               PropertyIdentifier = "logBuffer"
)

// DeviceObjectPropertyReference identifies the property a trend log monitors.
type DeviceObjectPropertyReference struct {
	Device     *ObjectIdentifier  `json:"device,omitempty" yaml:"device,omitempty"`
	Object     ObjectIdentifier   `json:"object" yaml:"object"`
	Property   PropertyIdentifier `json:"property" yaml:"property"`
	ArrayIndex *uint32            `json:"arrayIndex,omitempty" yaml:"array_index,omitempty"`
}

// Clone returns a deep copy.
func (r DeviceObjectPropertyReference) Clone() DeviceObjectPropertyReference {
	out := r
	if r.Device != nil {
		d := *r.Device
		out.Device = &d
	}
	if r.ArrayIndex != nil {
		i := *r.ArrayIndex
		out.ArrayIndex = &i
	}
	return out
}

// String renders e.g. "device:100/analogInput:3.presentValue[2]".
func (r DeviceObjectPropertyReference) String() string {
	var b strings.Builder
	if r.Device != nil {
		b.WriteString(r.Device.String())
		b.WriteByte('/')
	}
	b.WriteString(r.Object.String())
	b.WriteByte('.')
	b.WriteString(string(r.Property))
	if r.ArrayIndex != nil {
		fmt.Fprintf(&b, "[%d]", *r.ArrayIndex)
	}
	return b.String()
}

// TrendLogProperties is the static metadata of one trend log object.
type TrendLogProperties struct {
	ObjectID                ObjectIdentifier              `json:"objectId"`
	ObjectName              string                        `json:"objectName"`
	Description             string                        `json:"description"`
	LoggedPropertyReference DeviceObjectPropertyReference `json:"logDeviceObjectProperty"`
	BufferSize              uint32                        `json:"bufferSize"`
	RecordCount             uint32                        `json:"recordCount"`
	TotalRecordCount        uint32                        `json:"totalRecordCount"`
	StatusFlags             StatusFlags                   `json:"statusFlags"`
}
