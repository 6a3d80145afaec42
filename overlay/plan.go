// Package overlay turns a rendered chat screenshot plus per-message audio
// durations into the progressive frame sequence of the final video.
package overlay

// Params are the timing knobs of the frame sequence. All durations are in
// seconds.
type Params struct {
	FPS                  int
	StartBuffer          float64
	EndBuffer            float64
	PauseBetweenMessages float64
	MessagesPerGroup     int
}

// DefaultParams matches the production render settings.
func DefaultParams() Params {
	return Params{
		FPS:                  30,
		StartBuffer:          1.0,
		EndBuffer:            3.0,
		PauseBetweenMessages: 0.5,
		MessagesPerGroup:     4,
	}
}

type FrameKind int

const (
	FrameEmpty FrameKind = iota
	FrameReveal
)

// FrameSpec is one frame of the plan. For FrameReveal, Group is the group
// index and Shown is how many of that group's messages are visible.
type FrameSpec struct {
	Kind  FrameKind
	Group int
	Shown int
}

// BuildPlan derives the full frame sequence from the audio durations.
//
// The sequence is: start-buffer empties; then per group, per message i,
// duration_i worth of "reveal i+1" frames followed by a pause hold, with the
// pause omitted after the group's last message; then end-buffer empties.
// Each segment's frame count is truncated independently, so the total tracks
// fps times the timeline length.
func BuildPlan(durations []float64, p Params) []FrameSpec {
	if p.MessagesPerGroup < 1 {
		p.MessagesPerGroup = 1
	}
	fps := float64(p.FPS)
	var plan []FrameSpec

	appendN := func(n int, spec FrameSpec) {
		for i := 0; i < n; i++ {
			plan = append(plan, spec)
		}
	}

	appendN(int(p.StartBuffer*fps), FrameSpec{Kind: FrameEmpty})

	for groupStart := 0; groupStart < len(durations); groupStart += p.MessagesPerGroup {
		group := groupStart / p.MessagesPerGroup
		groupEnd := groupStart + p.MessagesPerGroup
		if groupEnd > len(durations) {
			groupEnd = len(durations)
		}
		for i := groupStart; i < groupEnd; i++ {
			shown := i - groupStart + 1
			appendN(int(durations[i]*fps), FrameSpec{Kind: FrameReveal, Group: group, Shown: shown})
			if i < groupEnd-1 {
				appendN(int(p.PauseBetweenMessages*fps), FrameSpec{Kind: FrameReveal, Group: group, Shown: shown})
			}
		}
	}

	appendN(int(p.EndBuffer*fps), FrameSpec{Kind: FrameEmpty})
	return plan
}
