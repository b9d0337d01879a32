package browser

import (
	"fmt"
	"math/rand/v2"
)

// Profile is one coherent browser identity: the UA string, client hints,
// locale and screen all describe the same machine.
type Profile struct {
	UserAgent           string
	Brands              [][2]string // [brand, majorVersion]
	FullVersionList     [][2]string // [brand, fullVersion]
	Platform            string      // client hints platform
	PlatformVersion     string
	Architecture        string
	NavigatorPlatform   string
	AcceptLanguage      string
	Locale              string
	TimezoneID          string
	HardwareConcurrency int64
	DeviceMemory        int
	ScreenWidth         int
	ScreenHeight        int
	WebGLVendor         string
	WebGLRenderer       string
}

type platformPreset struct {
	uaOS              string
	navigatorPlatform string
	chPlatform        string
	chPlatformVersion string
	architecture      string
	webGL             [][2]string // [vendor, renderer]
}

var platformPresets = []platformPreset{
	{
		uaOS:              "Windows NT 10.0; Win64; x64",
		navigatorPlatform: "Win32",
		chPlatform:        "Windows",
		chPlatformVersion: "15.0.0",
		architecture:      "x86",
		webGL: [][2]string{
			{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		},
	},
	{
		uaOS:              "Macintosh; Intel Mac OS X 10_15_7",
		navigatorPlatform: "MacIntel",
		chPlatform:        "macOS",
		chPlatformVersion: "14.5.0",
		architecture:      "arm",
		webGL: [][2]string{
			{"Google Inc. (Apple)", "ANGLE (Apple, Apple M1, OpenGL 4.1)"},
		},
	},
}

var screens = [][2]int{{1920, 1080}, {2560, 1440}, {1536, 864}, {1680, 1050}}

var locales = []struct {
	timezone, acceptLanguage, locale string
}{
	{"America/New_York", "en-US,en;q=0.9", "en-US"},
	{"America/Los_Angeles", "en-US,en;q=0.9", "en-US"},
	{"Europe/London", "en-GB,en;q=0.9,en-US;q=0.8", "en-GB"},
	{"Asia/Singapore", "en-SG,en;q=0.9", "en-SG"},
}

var chromeMajors = []string{"131", "132", "133"}

// NewProfile picks a random but internally consistent identity.
func NewProfile() *Profile {
	plat := platformPresets[rand.IntN(len(platformPresets))]
	gl := plat.webGL[rand.IntN(len(plat.webGL))]
	scr := screens[rand.IntN(len(screens))]
	loc := locales[rand.IntN(len(locales))]
	major := chromeMajors[rand.IntN(len(chromeMajors))]
	full := major + ".0.0.0"

	return &Profile{
		UserAgent: fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
			plat.uaOS, full,
		),
		Brands:              [][2]string{{"Not_A Brand", "8"}, {"Chromium", major}, {"Google Chrome", major}},
		FullVersionList:     [][2]string{{"Not_A Brand", "8.0.0.0"}, {"Chromium", full}, {"Google Chrome", full}},
		Platform:            plat.chPlatform,
		PlatformVersion:     plat.chPlatformVersion,
		Architecture:        plat.architecture,
		NavigatorPlatform:   plat.navigatorPlatform,
		AcceptLanguage:      loc.acceptLanguage,
		Locale:              loc.locale,
		TimezoneID:          loc.timezone,
		HardwareConcurrency: []int64{4, 8, 12, 16}[rand.IntN(4)],
		DeviceMemory:        []int{4, 8, 16}[rand.IntN(3)],
		ScreenWidth:         scr[0],
		ScreenHeight:        scr[1],
		WebGLVendor:         gl[0],
		WebGLRenderer:       gl[1],
	}
}
