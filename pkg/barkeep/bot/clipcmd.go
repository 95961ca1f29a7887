package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jholhewres/barkeep/pkg/barkeep/channels"
	"github.com/jholhewres/barkeep/pkg/barkeep/clip"
	"github.com/jholhewres/barkeep/pkg/barkeep/command"
)

// HandleClip applies a parsed $clip command: stage a preview from
// -u/-s/-e triples, adjust a staged clip with -clip N plus quality
// flags, then -confirm (optionally with -skip) or -cancel. -force stages
// and confirms in one step.
func (a *Assistant) HandleClip(ctx context.Context, channelID string, parsed *command.Parsed) string {
	if len(parsed.Errors) > 0 {
		return command.FormatErrors(parsed.Errors)
	}

	switch {
	case parsed.Has("cancel"):
		a.clips.Cancel(channelID)
		return "Clip job cancelled."

	case len(parsed.Values("url")) > 0:
		return a.clipPreview(ctx, channelID, parsed)

	case parsed.Has("clip"):
		return a.clipAdjust(channelID, parsed)

	case parsed.Has("confirm") || parsed.Has("force"):
		return a.clipConfirm(ctx, channelID, parsed)

	default:
		if job, ok := a.clips.Pending(channelID); ok {
			return renderClipJob(job)
		}
		return "No clip job pending. Stage one with -u <url> -s <start> -e <end>."
	}
}

// clipPreview builds one spec per -u/-s/-e triple and stages the job.
func (a *Assistant) clipPreview(ctx context.Context, channelID string, parsed *command.Parsed) string {
	urls := parsed.Values("url")
	starts := parsed.Values("start")
	ends := parsed.Values("end")

	var errs []command.ParseError
	fail := func(format string, args ...any) {
		errs = append(errs, command.ParseError{Code: command.ErrValidation, Message: fmt.Sprintf(format, args...)})
	}

	if len(starts) != len(urls) || len(ends) != len(urls) {
		fail("each clip needs matching -u, -s and -e (got %d urls, %d starts, %d ends)",
			len(urls), len(starts), len(ends))
		return command.FormatErrors(errs)
	}

	quality, qErrs := a.clipQuality(parsed)
	errs = append(errs, qErrs...)

	specs := make([]clip.Spec, 0, len(urls))
	for i := range urls {
		start, err := clip.ParseTimecode(starts[i])
		if err != nil {
			fail("clip %d: %v", i+1, err)
		}
		end, err := clip.ParseTimecode(ends[i])
		if err != nil {
			fail("clip %d: %v", i+1, err)
		}
		specs = append(specs, clip.Spec{URL: urls[i], Start: start, End: end, Quality: quality})
	}
	if len(errs) > 0 {
		return command.FormatErrors(errs)
	}

	job, err := a.clips.Preview(channelID, specs, a.uploadLimit(channelID))
	if err != nil {
		return fmt.Sprintf("Could not stage the clip job: %v", err)
	}

	if parsed.Has("force") {
		return a.clipConfirm(ctx, channelID, parsed)
	}
	return renderClipJob(job) + "\nConfirm with -confirm, tune with -clip N, or -cancel."
}

// clipAdjust changes one staged clip's quality.
func (a *Assistant) clipAdjust(channelID string, parsed *command.Parsed) string {
	raw, _ := parsed.Value("clip")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return command.FormatErrors([]command.ParseError{{
			Code: command.ErrValidation, Message: fmt.Sprintf("-clip takes a clip number, got %q", raw),
		}})
	}

	adj, errs := a.clipAdjustment(parsed)
	if len(errs) > 0 {
		return command.FormatErrors(errs)
	}

	job, err := a.clips.Adjust(channelID, n-1, adj)
	if err != nil {
		if errors.Is(err, clip.ErrNoPendingJob) {
			return "No clip job pending. Stage one first."
		}
		return fmt.Sprintf("Could not adjust clip %d: %v", n, err)
	}
	return renderClipJob(job)
}

// clipConfirm hands the staged job to the extractor and uploads each
// successful clip.
func (a *Assistant) clipConfirm(ctx context.Context, channelID string, parsed *command.Parsed) string {
	var skip []int
	for _, raw := range parsed.Values("skip") {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return command.FormatErrors([]command.ParseError{{
				Code: command.ErrValidation, Message: fmt.Sprintf("-skip takes clip numbers, got %q", raw),
			}})
		}
		skip = append(skip, n-1)
	}

	results, err := a.clips.Confirm(ctx, channelID, skip)
	if err != nil {
		if errors.Is(err, clip.ErrNoPendingJob) {
			return "No clip job pending. Stage one first."
		}
		return fmt.Sprintf("Could not confirm: %v", err)
	}

	var lines []string
	for _, r := range results {
		if r.Err != nil {
			lines = append(lines, fmt.Sprintf("Clip %d failed: %v", r.Index+1, r.Err))
			continue
		}
		if fc, ok := a.channel.(channels.FileChannel); ok {
			caption := fmt.Sprintf("Clip %d", r.Index+1)
			if err := fc.SendFile(ctx, channelID, r.Path, caption); err != nil {
				lines = append(lines, fmt.Sprintf("Clip %d extracted but upload failed: %v", r.Index+1, err))
				continue
			}
		}
		lines = append(lines, fmt.Sprintf("Clip %d done.", r.Index+1))
	}
	if len(lines) == 0 {
		return "Nothing to extract; every clip was skipped."
	}
	return strings.Join(lines, "\n")
}

// clipQuality resolves the preview's quality flags over the format
// preset's defaults.
func (a *Assistant) clipQuality(parsed *command.Parsed) (clip.Quality, []command.ParseError) {
	var errs []command.ParseError
	fail := func(format string, args ...any) {
		errs = append(errs, command.ParseError{Code: command.ErrValidation, Message: fmt.Sprintf(format, args...)})
	}

	format, _ := parsed.Value("format")
	quality, ok := clip.Preset(format)
	if !ok {
		fail("unknown format %q (video, gif, audio)", format)
		quality, _ = clip.Preset("video")
	}
	if raw, bound := parsed.Value("resolution"); bound {
		if v, err := strconv.Atoi(strings.TrimSuffix(raw, "p")); err == nil && v > 0 {
			quality.Resolution = v
		} else {
			fail("invalid resolution %q", raw)
		}
	}
	if raw, bound := parsed.Value("fps"); bound {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			quality.FPS = v
		} else {
			fail("invalid fps %q", raw)
		}
	}
	if raw, bound := parsed.Value("bitrate"); bound {
		if v, err := strconv.Atoi(strings.TrimSuffix(raw, "k")); err == nil && v > 0 {
			quality.BitrateKbps = v
		} else {
			fail("invalid bitrate %q", raw)
		}
	}
	return quality, errs
}

// clipAdjustment translates the quality flags into a sparse adjustment.
func (a *Assistant) clipAdjustment(parsed *command.Parsed) (clip.Adjustment, []command.ParseError) {
	var adj clip.Adjustment
	var errs []command.ParseError
	fail := func(format string, args ...any) {
		errs = append(errs, command.ParseError{Code: command.ErrValidation, Message: fmt.Sprintf(format, args...)})
	}

	if raw, bound := parsed.Value("resolution"); bound {
		if v, err := strconv.Atoi(strings.TrimSuffix(raw, "p")); err == nil && v > 0 {
			adj.Resolution = &v
		} else {
			fail("invalid resolution %q", raw)
		}
	}
	if raw, bound := parsed.Value("fps"); bound {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			adj.FPS = &v
		} else {
			fail("invalid fps %q", raw)
		}
	}
	if raw, bound := parsed.Value("bitrate"); bound {
		if v, err := strconv.Atoi(strings.TrimSuffix(raw, "k")); err == nil && v > 0 {
			adj.BitrateKbps = &v
		} else {
			fail("invalid bitrate %q", raw)
		}
	}
	if raw, bound := parsed.Value("format"); bound {
		if preset, ok := clip.Preset(raw); ok {
			adj.Format = &preset.Format
		} else {
			fail("unknown format %q (video, gif, audio)", raw)
		}
	}
	if adj.Resolution == nil && adj.FPS == nil && adj.BitrateKbps == nil && adj.Format == nil && len(errs) == 0 {
		fail("-clip needs at least one of -r, -fps, -b, -f to change")
	}
	return adj, errs
}

// uploadLimit asks the transport for the channel's upload ceiling.
func (a *Assistant) uploadLimit(channelID string) float64 {
	if fc, ok := a.channel.(channels.FileChannel); ok {
		return fc.UploadLimitMB(channelID)
	}
	return clip.TierLimitMB(0)
}
