package peripheral

import (
	"errors"
	"time"
)

// State is the link state between the relay and the display.
type State string

const (
	Disconnected State = "disconnected"
	Scanning     State = "scanning"
	Connecting   State = "connecting"
	Connected    State = "connected"
	Error        State = "error"
)

const (
	DefaultDeviceName  = "Helen's Display"
	ServiceUUID        = "4fafc201-1fb5-459e-8fcc-c5c9c331914b"
	CharacteristicUUID = "beb5483e-36e1-4688-b7f5-ea07361b26a8"
	SimulatedRSSI      = -65

	// MaxPayload is the characteristic write limit in bytes.
	MaxPayload = 512

	DefaultScanDelay    = 2 * time.Second
	DefaultConnectDelay = time.Second
	DefaultSendDelay    = 500 * time.Millisecond
	DefaultSuccessRate  = 0.95
)

var (
	ErrNotConnected       = errors.New("not connected to device")
	ErrTransmissionFailed = errors.New("failed to send message")
	ErrPayloadTooLarge    = errors.New("payload exceeds characteristic write limit")
)

// Device is the display found by the last scan.
type Device struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RSSI               int    `json:"rssi"`
	ServiceUUID        string `json:"serviceUuid"`
	CharacteristicUUID string `json:"characteristicUuid"`
}

// Snapshot is a consistent view of the machine at one instant.
type Snapshot struct {
	State      State   `json:"state"`
	DeviceName string  `json:"deviceName"`
	Connected  bool    `json:"connected"`
	Device     *Device `json:"device,omitempty"`
}

type Options struct {
	ScanDelay    time.Duration
	ConnectDelay time.Duration
	SendDelay    time.Duration
	// SuccessRate is the probability that a write reaches the display.
	// nil, or a value outside [0, 1], means DefaultSuccessRate.
	SuccessRate *float64
	DeviceName  string
	// Rand returns a value in [0, 1). A send succeeds when it is below SuccessRate.
	Rand func() float64
}

func (o Options) withDefaults() Options {
	if o.ScanDelay <= 0 {
		o.ScanDelay = DefaultScanDelay
	}
	if o.ConnectDelay <= 0 {
		o.ConnectDelay = DefaultConnectDelay
	}
	if o.SendDelay <= 0 {
		o.SendDelay = DefaultSendDelay
	}
	if o.SuccessRate == nil || *o.SuccessRate < 0 || *o.SuccessRate > 1 {
		rate := DefaultSuccessRate
		o.SuccessRate = &rate
	}
	if o.DeviceName == "" {
		o.DeviceName = DefaultDeviceName
	}
	return o
}
