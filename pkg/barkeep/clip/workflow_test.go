package clip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeExtractor struct {
	calls []Spec
	fail  map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, spec Spec) (string, error) {
	f.calls = append(f.calls, spec)
	if err, ok := f.fail[spec.URL]; ok {
		return "", err
	}
	return "/tmp/" + spec.URL + ".mp4", nil
}

func videoSpec(url string, start, end float64) Spec {
	q, _ := Preset("video")
	return Spec{URL: url, Start: start, End: end, Quality: q}
}

func TestPreviewEstimates(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)

	job, err := e.Preview("chan", []Spec{
		videoSpec("a", 0, 10),
		videoSpec("b", 0, 600),
	}, TierLimitMB(0))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(job.Estimates) != 2 {
		t.Fatalf("estimates = %d, want 2", len(job.Estimates))
	}
	// 10s at 720p: (2500+128)*10/8/1024 ≈ 3.2 MB, under the 10 MB tier.
	if !job.Estimates[0].Fits {
		t.Errorf("short clip should fit: %+v", job.Estimates[0])
	}
	// 10 minutes at 720p is way past 10 MB.
	if job.Estimates[1].Fits {
		t.Errorf("long clip should not fit: %+v", job.Estimates[1])
	}
}

func TestPreviewRejectsEndBeforeStart(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)

	_, err := e.Preview("chan", []Spec{videoSpec("a", 20, 10)}, 10)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if _, pending := e.Pending("chan"); pending {
		t.Error("invalid preview left a pending job")
	}
}

func TestPreviewReplacesPendingJob(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)

	first, _ := e.Preview("chan", []Spec{videoSpec("a", 0, 10)}, 10)
	second, _ := e.Preview("chan", []Spec{videoSpec("b", 0, 10)}, 10)
	if first.ID == second.ID {
		t.Error("second preview did not mint a new job")
	}
	job, ok := e.Pending("chan")
	if !ok || job.Specs[0].URL != "b" {
		t.Errorf("pending job = %+v, want the second preview", job)
	}
}

func TestAdjustLowerResolutionShrinksEstimate(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)

	job, _ := e.Preview("chan", []Spec{videoSpec("a", 0, 60)}, 10)
	before := job.Estimates[0].SizeMB

	res := 360
	job, err := e.Adjust("chan", 0, Adjustment{Resolution: &res})
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if job.Estimates[0].SizeMB >= before {
		t.Errorf("size after downscale = %.2f, want < %.2f", job.Estimates[0].SizeMB, before)
	}
}

func TestAdjustOutOfRangeIndex(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)
	e.Preview("chan", []Spec{videoSpec("a", 0, 10)}, 10)

	_, err := e.Adjust("chan", 5, Adjustment{})
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	// The job survives a bad adjust untouched.
	if _, ok := e.Pending("chan"); !ok {
		t.Error("pending job lost after rejected adjust")
	}
}

func TestAdjustWithoutPreview(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)
	if _, err := e.Adjust("chan", 0, Adjustment{}); !errors.Is(err, ErrNoPendingJob) {
		t.Errorf("err = %v, want ErrNoPendingJob", err)
	}
}

func TestConfirmExtractsAndClears(t *testing.T) {
	t.Parallel()
	fx := &fakeExtractor{fail: map[string]error{"b": errors.New("transcode blew up")}}
	e := NewEngine(fx, nil, nil)
	e.Preview("chan", []Spec{
		videoSpec("a", 0, 10),
		videoSpec("b", 0, 10),
		videoSpec("c", 0, 10),
	}, 10)

	results, err := e.Confirm(context.Background(), "chan", []int{2})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (one skipped)", len(results))
	}
	if results[0].Err != nil || results[0].Path == "" {
		t.Errorf("clip a should have succeeded: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("clip b extraction failure not reported")
	}
	if len(fx.calls) != 2 {
		t.Errorf("extractor calls = %d, want 2", len(fx.calls))
	}
	// Partial failure still consumes the job.
	if _, ok := e.Pending("chan"); ok {
		t.Error("job still pending after confirm")
	}
}

func TestConfirmRejectsOversizedClip(t *testing.T) {
	t.Parallel()
	fx := &fakeExtractor{}
	e := NewEngine(fx, nil, nil)
	e.Preview("chan", []Spec{videoSpec("huge", 0, 3600)}, 10)

	results, err := e.Confirm(context.Background(), "chan", nil)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	var verr ValidationError
	if !errors.As(results[0].Err, &verr) {
		t.Errorf("oversized clip result = %v, want ValidationError", results[0].Err)
	}
	if len(fx.calls) != 0 {
		t.Error("oversized clip reached the extractor")
	}
}

func TestConfirmAfterCancelIsStateConflict(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)
	e.Preview("chan", []Spec{videoSpec("a", 0, 10)}, 10)
	e.Cancel("chan")

	if _, err := e.Confirm(context.Background(), "chan", nil); !errors.Is(err, ErrNoPendingJob) {
		t.Errorf("confirm after cancel = %v, want ErrNoPendingJob", err)
	}
}

func TestCancelAlwaysSucceeds(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)
	e.Cancel("chan") // nothing pending
	e.Preview("chan", []Spec{videoSpec("a", 0, 10)}, 10)
	e.Cancel("chan")
	e.Cancel("chan")
	if _, ok := e.Pending("chan"); ok {
		t.Error("job survived cancel")
	}
}

func TestParseTimecode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"90", 90, true},
		{"12.5", 12.5, true},
		{"1:30", 90, true},
		{"1:02:03", 3723, true},
		{"0:00", 0, true},
		{"", 0, false},
		{"-5", 0, false},
		{"1:2:3:4", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimecode(tc.in)
			if tc.ok != (err == nil) {
				t.Fatalf("ParseTimecode(%q) err = %v, ok = %v", tc.in, err, tc.ok)
			}
			if tc.ok && got != tc.want {
				t.Errorf("ParseTimecode(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatTimecode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{90, "1:30"},
		{3723, "1:02:03"},
		{12.5, "0:12.500"},
	}
	for _, tc := range cases {
		if got := FormatTimecode(tc.in); got != tc.want {
			t.Errorf("FormatTimecode(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEstimateResolutionMonotonic(t *testing.T) {
	t.Parallel()
	prev := 0.0
	for _, res := range []int{144, 240, 360, 480, 720, 1080, 1440, 2160} {
		q := Quality{Resolution: res, FPS: 30, Format: "mp4"}
		size := EstimateSizeMB(q, 60)
		if size <= prev {
			t.Errorf("size at %dp = %.2f, not greater than %.2f", res, size, prev)
		}
		prev = size
	}
}

func TestTierLimits(t *testing.T) {
	t.Parallel()
	for tier, want := range map[int]float64{0: 10, 1: 10, 2: 50, 3: 100, 4: 100} {
		if got := TierLimitMB(tier); got != want {
			t.Errorf("TierLimitMB(%d) = %v, want %v", tier, got, want)
		}
	}
}

func TestConcurrentChannelsDoNotRace(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ch := fmt.Sprintf("chan-%d", g)
			for i := 0; i < 200; i++ {
				if _, err := e.Preview(ch, []Spec{videoSpec("a", 0, 10)}, 10); err != nil {
					t.Errorf("Preview(%s): %v", ch, err)
					return
				}
				e.Pending(ch)
				e.Cancel(ch)
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 16; g++ {
		if _, ok := e.Pending(fmt.Sprintf("chan-%d", g)); ok {
			t.Errorf("chan-%d still pending after final cancel", g)
		}
	}
}

func TestIndependentChannels(t *testing.T) {
	t.Parallel()
	e := NewEngine(&fakeExtractor{}, nil, nil)
	for i := 0; i < 3; i++ {
		ch := fmt.Sprintf("chan-%d", i)
		if _, err := e.Preview(ch, []Spec{videoSpec("a", 0, 10)}, 10); err != nil {
			t.Fatalf("Preview(%s): %v", ch, err)
		}
	}
	e.Cancel("chan-1")
	if _, ok := e.Pending("chan-0"); !ok {
		t.Error("cancel on chan-1 affected chan-0")
	}
	if _, ok := e.Pending("chan-1"); ok {
		t.Error("chan-1 still pending after cancel")
	}
}
