package viewer

import (
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/castleview/internal/logger"
)

// StatsSnapshot is what the FPS panel shows.
type StatsSnapshot struct {
	FPS       float64
	MinFPS    float64
	MaxFPS    float64
	FrameTime time.Duration
	Samples   int
}

// Stats counts frames and publishes a frame rate once per second.
type Stats struct {
	now func() time.Time

	windowStart time.Time
	frames      int
	lastFrame   time.Time

	snap StatsSnapshot
}

// NewStats creates a frame counter starting now.
func NewStats() *Stats {
	return newStatsAt(time.Now)
}

func newStatsAt(now func() time.Time) *Stats {
	t := now()
	return &Stats{now: now, windowStart: t, lastFrame: t}
}

// Update records a finished frame.
func (s *Stats) Update() {
	t := s.now()
	s.snap.FrameTime = t.Sub(s.lastFrame)
	s.lastFrame = t
	s.frames++

	elapsed := t.Sub(s.windowStart)
	if elapsed < time.Second {
		return
	}

	fps := float64(s.frames) / elapsed.Seconds()
	s.snap.FPS = fps
	if s.snap.Samples == 0 || fps < s.snap.MinFPS {
		s.snap.MinFPS = fps
	}
	if fps > s.snap.MaxFPS {
		s.snap.MaxFPS = fps
	}
	s.snap.Samples++

	logger.Debug("fps",
		zap.Float64("fps", fps),
		zap.Duration("frame", s.snap.FrameTime))

	s.frames = 0
	s.windowStart = t
}

// Snapshot returns the latest published values.
func (s *Stats) Snapshot() StatsSnapshot {
	return s.snap
}

// Lines formats the snapshot for the FPS panel. Before the first sample
// it reports that measurement is pending.
func (s StatsSnapshot) Lines() []string {
	if s.Samples == 0 {
		return []string{"FPS --"}
	}
	ms := float64(s.FrameTime) / float64(time.Millisecond)
	return []string{
		"FPS " + humanize.FtoaWithDigits(s.FPS, 1),
		"min " + humanize.FtoaWithDigits(s.MinFPS, 1) + "  max " + humanize.FtoaWithDigits(s.MaxFPS, 1),
		"frame " + humanize.FtoaWithDigits(ms, 2) + " ms",
	}
}
