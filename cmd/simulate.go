package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/ink/internal/sim"
)

func newSimulateCmd(g *globalFlags) *cobra.Command {
	f := &simFlags{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a synthetic drawing session and report component statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(g, f)
			if err != nil {
				return err
			}
			defer s.Close()

			rep, err := s.run(cmd.Context(), f)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(newSummary(rep, s))
			}
			return writeReport(cmd.OutOrStdout(), rep, s)
		},
	}

	f.bind(cmd.Flags(), sim.DefaultConfig().Strokes)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}

// summary is the JSON form of a session report.
type summary struct {
	Strokes       int     `json:"strokes"`
	LocalStrokes  int     `json:"local_strokes"`
	RemoteStrokes int     `json:"remote_strokes"`
	Frames        int     `json:"frames"`
	AvgFrameMS    float64 `json:"avg_frame_ms"`
	MaxFrameMS    float64 `json:"max_frame_ms"`
	Simulated     string  `json:"simulated"`
	Resident      int     `json:"resident"`
	Visible       int     `json:"visible"`
	Evicted       uint64  `json:"evicted"`
	Restored      uint64  `json:"restored"`
	BackupLen     int     `json:"backup_len"`
	Cleanups      uint64  `json:"cleanups"`
	PoolHitRate   float64 `json:"pool_hit_rate"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	CacheEntries  int     `json:"cache_entries"`
	CullRebuilds  uint64  `json:"cull_rebuilds"`
	BackupErrors  uint64  `json:"backup_errors"`
}

func newSummary(rep sim.Report, s *session) summary {
	st := rep.Stats
	out := summary{
		Strokes:       rep.Strokes,
		LocalStrokes:  rep.LocalStrokes,
		RemoteStrokes: rep.RemoteStrokes,
		Frames:        rep.Frames,
		AvgFrameMS:    ms(rep.AvgFrame()),
		MaxFrameMS:    ms(rep.FrameMax),
		Simulated:     rep.Simulated.String(),
		Resident:      st.Retention.Resident,
		Visible:       rep.LastFrame.Visible,
		Evicted:       st.Retention.Evicted(),
		Restored:      st.Retention.Restored,
		BackupLen:     st.Retention.BackupLen,
		Cleanups:      st.Retention.Cleanups,
		PoolHitRate:   st.Pool.HitRate,
		CacheHitRate:  st.Cache.HitRate,
		CacheEntries:  st.Cache.Entries,
		CullRebuilds:  st.Cull.Rebuilds,
	}
	if s.store != nil {
		out.BackupErrors = s.store.Errors()
	}
	return out
}

func writeReport(w io.Writer, rep sim.Report, s *session) error {
	p := message.NewPrinter(language.English)
	st := rep.Stats

	lines := []struct {
		format string
		args   []any
	}{
		{"strokes: %d (%d local, %d remote) over %v simulated\n", []any{rep.Strokes, rep.LocalStrokes, rep.RemoteStrokes, rep.Simulated}},
		{"frames: %d, avg %.3fms, max %.3fms\n", []any{rep.Frames, ms(rep.AvgFrame()), ms(rep.FrameMax)}},
		{"last frame: %d visible of %d resident, %d meshes\n", []any{rep.LastFrame.Visible, rep.LastFrame.Resident, len(rep.LastFrame.Geometry)}},
		{"pool: %d hits, %d misses (%.1f%%), %d free, %d trimmed\n", []any{st.Pool.Hits, st.Pool.Misses, 100 * st.Pool.HitRate, st.Pool.Free, st.Pool.Trimmed}},
		{"cull: %d strokes in %d cells (depth %d), %d rebuilds, last %v\n", []any{st.Cull.Strokes, st.Cull.Cells, st.Cull.Depth, st.Cull.Rebuilds, st.Cull.LastRebuild}},
		{"cache: %d entries, %.1f MB of %.1f MB, %.1f%% hits, %d evicted, %d expired\n", []any{st.Cache.Entries, mb(st.Cache.Bytes), mb(st.Cache.MaxBytes), 100 * st.Cache.HitRate, st.Cache.Evictions, st.Cache.Expired}},
		{"retention: %d resident, %.1f MB, %d cleanups (%d skipped), %d evicted (age %d, memory %d, count %d)\n", []any{
			st.Retention.Resident, mb(st.Retention.Bytes), st.Retention.Cleanups, st.Retention.SkippedCleanups,
			st.Retention.Evicted(), st.Retention.EvictedByAge, st.Retention.EvictedByMemory, st.Retention.EvictedByCount,
		}},
		{"backup: %d held, %d backed up, %d restored\n", []any{st.Retention.BackupLen, st.Retention.BackedUp, st.Retention.Restored}},
		{"maintenance: %d runs, %d panics, %d coalesced\n", []any{st.Maintenance.Runs, st.Maintenance.Panics, st.Maintenance.Coalesced}},
	}
	for _, l := range lines {
		if _, err := p.Fprintf(w, l.format, l.args...); err != nil {
			return err
		}
	}
	if s.store != nil {
		if _, err := p.Fprintf(w, "backup store errors: %d\n", s.store.Errors()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "elapsed: %v\n", rep.Elapsed.Round(time.Millisecond))
	return err
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mb(b int64) float64 {
	return float64(b) / (1 << 20)
}
