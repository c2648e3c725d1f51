// Package config models the host's device configuration as an immutable
// snapshot that is replaced wholesale whenever the host reports a
// configuration change.
package config

import "fmt"

// Orientation is the device orientation reported by the host.
type Orientation int

const (
	OrientationAny Orientation = iota
	OrientationPortrait
	OrientationLandscape
	OrientationSquare
)

func (o Orientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationLandscape:
		return "landscape"
	case OrientationSquare:
		return "square"
	default:
		return "any"
	}
}

// Keyboard is the kind of keyboard attached to the device.
type Keyboard int

const (
	KeyboardNoKeys Keyboard = iota
	KeyboardQwerty
	KeyboardTwelveKey
)

// Navigation is the kind of navigation method available on the device.
type Navigation int

const (
	NavigationNoNav Navigation = iota
	NavigationDpad
	NavigationTrackball
	NavigationWheel
)

// ScreenSize is the host's coarse screen size bucket.
type ScreenSize int

const (
	ScreenSizeSmall ScreenSize = iota
	ScreenSizeNormal
	ScreenSizeLarge
	ScreenSizeXLarge
)

// UIModeNight is the host's night mode setting.
type UIModeNight int

const (
	UIModeNightAny UIModeNight = iota
	UIModeNightNo
	UIModeNightYes
)

// LayoutDir is the layout direction of the current locale.
type LayoutDir int

const (
	LayoutDirLTR LayoutDir = iota
	LayoutDirRTL
)

// Configuration is a point-in-time copy of the host's device configuration.
// Values are never mutated after construction; a configuration change
// replaces the whole snapshot through a Ref.
type Configuration struct {
	Mcc                   int
	Mnc                   int
	Language              string
	Country               string
	Orientation           Orientation
	Keyboard              Keyboard
	Navigation            Navigation
	DensityDpi            int
	ScreenSize            ScreenSize
	ScreenWidthDp         int
	ScreenHeightDp        int
	SmallestScreenWidthDp int
	UIModeNight           UIModeNight
	LayoutDir             LayoutDir
	SDKVersion            int
}

// Locale returns the configuration's locale as a BCP-47-ish tag, or "" when
// the host reported no language.
func (c *Configuration) Locale() string {
	if c.Language == "" {
		return ""
	}
	if c.Country == "" {
		return c.Language
	}
	return c.Language + "-" + c.Country
}

// Clone returns an independent copy of the snapshot.
func (c *Configuration) Clone() *Configuration {
	dup := *c
	return &dup
}

func (c *Configuration) String() string {
	return fmt.Sprintf("Configuration{locale=%s orientation=%s density=%d sdk=%d}",
		c.Locale(), c.Orientation, c.DensityDpi, c.SDKVersion)
}
