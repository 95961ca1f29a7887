package clip

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// CommandExtractor cuts clips with yt-dlp and re-encodes them with
// ffmpeg. Output files land in Dir and are the caller's to clean up
// after upload.
type CommandExtractor struct {
	Dir        string
	YTDLPPath  string // defaults to "yt-dlp"
	FFmpegPath string // defaults to "ffmpeg"
}

func (x *CommandExtractor) ytdlp() string {
	if x.YTDLPPath != "" {
		return x.YTDLPPath
	}
	return "yt-dlp"
}

func (x *CommandExtractor) ffmpeg() string {
	if x.FFmpegPath != "" {
		return x.FFmpegPath
	}
	return "ffmpeg"
}

// Extract downloads the requested section of the source and encodes it
// to the spec's quality. Returns the output file path.
func (x *CommandExtractor) Extract(ctx context.Context, spec Spec) (string, error) {
	if err := os.MkdirAll(x.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating clip directory: %w", err)
	}
	id := uuid.NewString()
	raw := filepath.Join(x.Dir, id+".source.mp4")
	defer os.Remove(raw)

	section := fmt.Sprintf("*%s-%s", FormatTimecode(spec.Start), FormatTimecode(spec.End))
	download := exec.CommandContext(ctx, x.ytdlp(),
		"--download-sections", section,
		"--force-keyframes-at-cuts",
		"-f", "bestvideo+bestaudio/best",
		"--merge-output-format", "mp4",
		"-o", raw,
		spec.URL)
	if out, err := download.CombinedOutput(); err != nil {
		return "", fmt.Errorf("downloading section: %w: %s", err, out)
	}

	ext := spec.Quality.Format
	if ext == "" {
		ext = "mp4"
	}
	out := filepath.Join(x.Dir, id+"."+ext)
	encode := exec.CommandContext(ctx, x.ffmpeg(), encodeArgs(raw, out, spec.Quality)...)
	if msg, err := encode.CombinedOutput(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("encoding clip: %w: %s", err, msg)
	}
	return out, nil
}

// encodeArgs builds the ffmpeg argument list for one quality preset.
func encodeArgs(in, out string, q Quality) []string {
	args := []string{"-y", "-i", in}
	switch q.Format {
	case "mp3":
		args = append(args, "-vn", "-b:a", fmt.Sprintf("%dk", audioBitrateKbps))
	case "gif":
		filter := fmt.Sprintf("fps=%d,scale=-2:%d:flags=lanczos", q.FPS, q.Resolution)
		args = append(args, "-vf", filter, "-loop", "0")
	default:
		args = append(args,
			"-vf", fmt.Sprintf("scale=-2:%d", q.Resolution),
			"-r", fmt.Sprintf("%d", q.FPS),
			"-b:v", fmt.Sprintf("%dk", q.EffectiveBitrate()),
			"-b:a", fmt.Sprintf("%dk", audioBitrateKbps),
			"-movflags", "+faststart")
	}
	return append(args, out)
}
