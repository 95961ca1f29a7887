// Package clip implements the two-phase clip extraction workflow:
// preview size estimates against the channel's upload limit, optional
// per-clip quality adjustments, then confirm or cancel.
package clip

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// audioBitrateKbps is assumed for every clip's audio track.
const audioBitrateKbps = 128

// TierLimitMB maps a server boost tier (0–3) to its upload ceiling in MB.
func TierLimitMB(tier int) float64 {
	switch {
	case tier >= 3:
		return 100
	case tier == 2:
		return 50
	default:
		return 10
	}
}

// Quality holds the encode parameters for one clip.
type Quality struct {
	Resolution  int // vertical resolution, e.g. 720
	FPS         int
	BitrateKbps int    // video bitrate; 0 means derive from Resolution
	Format      string // container/codec preset: mp4, gif, mp3
}

// resolutionBitrate maps a vertical resolution to a default video
// bitrate in kbps. Unlisted resolutions interpolate to the next listed
// one below.
var resolutionBitrate = []struct {
	height int
	kbps   int
}{
	{2160, 14000},
	{1440, 8000},
	{1080, 4500},
	{720, 2500},
	{480, 1200},
	{360, 800},
	{240, 500},
	{144, 300},
}

func defaultBitrate(resolution int) int {
	for _, rb := range resolutionBitrate {
		if resolution >= rb.height {
			return rb.kbps
		}
	}
	return resolutionBitrate[len(resolutionBitrate)-1].kbps
}

// EffectiveBitrate returns the video bitrate the estimate uses: the
// explicit one when set, otherwise the default for the resolution.
func (q Quality) EffectiveBitrate() int {
	if q.BitrateKbps > 0 {
		return q.BitrateKbps
	}
	return defaultBitrate(q.Resolution)
}

// Preset returns the named quality preset. Known names: video, gif,
// audio.
func Preset(name string) (Quality, bool) {
	switch name {
	case "video", "":
		return Quality{Resolution: 720, FPS: 30, Format: "mp4"}, true
	case "gif":
		return Quality{Resolution: 360, FPS: 15, Format: "gif"}, true
	case "audio":
		return Quality{Resolution: 0, FPS: 0, BitrateKbps: 0, Format: "mp3"}, true
	default:
		return Quality{}, false
	}
}

// EstimateSizeMB computes the projected file size for a clip of the
// given duration: (video kbps + audio kbps) * seconds / 8 / 1024.
// Audio-only formats drop the video term.
func EstimateSizeMB(q Quality, durationSec float64) float64 {
	if durationSec <= 0 {
		return 0
	}
	kbps := float64(audioBitrateKbps)
	if q.Format != "mp3" {
		kbps += float64(q.EffectiveBitrate())
	}
	return kbps * durationSec / 8 / 1024
}

// ParseTimecode accepts "SS", "SS.mmm", "MM:SS" or "HH:MM:SS" and
// returns seconds.
func ParseTimecode(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	total := 0.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timecode %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}

// FormatTimecode renders seconds as H:MM:SS.mmm, dropping the hour part
// and trailing zero milliseconds when possible.
func FormatTimecode(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	whole := math.Floor(sec)
	ms := int(math.Round((sec - whole) * 1000))
	if ms == 1000 {
		whole++
		ms = 0
	}
	h := int(whole) / 3600
	m := (int(whole) % 3600) / 60
	s := int(whole) % 60

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%d:%02d:%02d", h, m, s)
	} else {
		fmt.Fprintf(&b, "%d:%02d", m, s)
	}
	if ms > 0 {
		fmt.Fprintf(&b, ".%03d", ms)
	}
	return b.String()
}
