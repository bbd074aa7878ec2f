// Package capability declares the narrow OS-facing ports the dispatcher drives.
// Implementations live outside the core (see package capability/platform); every
// method except Clock.Now may fail, and callers only ever embed the error text.
package capability

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned by bindings that have no way to drive a resource on this platform.
var ErrUnsupported = errors.New("not supported on this platform")

// Brightness controls the primary display backlight, in percent.
type Brightness interface {
	Current(ctx context.Context) (int, error)
	Set(ctx context.Context, level int) error
}

// Volume controls the default audio endpoint as a fraction in [0, 1].
type Volume interface {
	Current(ctx context.Context) (float64, error)
	Set(ctx context.Context, level float64) error
}

// Screenshotter captures the screen and returns the saved file path.
type Screenshotter interface {
	Capture(ctx context.Context) (string, error)
}

// BatteryStatus is a single battery reading.
type BatteryStatus struct {
	Percent  int
	Charging bool
}

// Battery reads battery telemetry.
type Battery interface {
	Query(ctx context.Context) (BatteryStatus, error)
}

// Clock formats the current local time.
type Clock interface {
	Now() string
}

// Launcher starts a program without waiting for it.
type Launcher interface {
	Launch(ctx context.Context, path string) error
}

// Set bundles the ports handed to the dispatcher. A nil field means the
// resource is unavailable and is reported as a failed action.
type Set struct {
	Brightness Brightness
	Volume     Volume
	Screenshot Screenshotter
	Battery    Battery
	Clock      Clock
	Launcher   Launcher
}

// DateTimeLayout renders like "Today is Monday, January 02, 2006 and the time is 03:04 PM".
const DateTimeLayout = "Monday, January 02, 2006"

// SystemClock reads the wall clock.
type SystemClock struct {
	// now is swapped in tests.
	now func() time.Time
}

// NewSystemClock returns a clock backed by time.Now.
func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) *SystemClock {
	return &SystemClock{now: func() time.Time { return t }}
}

func (c *SystemClock) Now() string {
	now := time.Now
	if c != nil && c.now != nil {
		now = c.now
	}
	t := now()
	return "Today is " + t.Format(DateTimeLayout) + " and the time is " + t.Format("03:04 PM")
}
