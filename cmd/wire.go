package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gogpu/ink/config"
	"github.com/gogpu/ink/internal/sim"
	"github.com/gogpu/ink/retention/sqlitestore"
	"github.com/gogpu/ink/surface"
)

// simFlags are the session parameters shared by simulate and render.
type simFlags struct {
	users      int
	strokes    int
	points     int
	canvas     float64
	viewW      float64
	viewH      float64
	frameEvery int
	interval   time.Duration
	seed       uint64
	backupDB   string
}

func (f *simFlags) bind(fs *pflag.FlagSet, strokes int) {
	d := sim.DefaultConfig()
	fs.IntVar(&f.users, "users", d.Users, "number of participants; user 0 draws locally")
	fs.IntVar(&f.strokes, "strokes", strokes, "number of strokes to draw")
	fs.IntVar(&f.points, "points", d.PointsPerStroke, "mean points per stroke")
	fs.Float64Var(&f.canvas, "canvas", d.Canvas, "side of the square canvas in world units")
	fs.Float64Var(&f.viewW, "view-width", d.ViewportWidth, "viewport width in world units")
	fs.Float64Var(&f.viewH, "view-height", d.ViewportHeight, "viewport height in world units")
	fs.IntVar(&f.frameEvery, "frame-every", d.FrameEvery, "build a frame after this many strokes")
	fs.DurationVar(&f.interval, "interval", d.StrokeInterval, "simulated time between strokes")
	fs.Uint64Var(&f.seed, "seed", d.Seed, "random seed")
	fs.StringVar(&f.backupDB, "backup-db", "", "SQLite file for evicted strokes (overrides retention.backup_path)")
}

func (f *simFlags) config() sim.Config {
	return sim.Config{
		Users:           f.users,
		Strokes:         f.strokes,
		PointsPerStroke: f.points,
		Canvas:          f.canvas,
		ViewportWidth:   f.viewW,
		ViewportHeight:  f.viewH,
		FrameEvery:      f.frameEvery,
		StrokeInterval:  f.interval,
		Seed:            f.seed,
	}
}

// session is a surface wired from a config file, driven by a simulated
// clock.
type session struct {
	file    config.File
	surface *surface.Surface
	clock   *sim.Clock
	store   *sqlitestore.Store
}

func openSession(g *globalFlags, f *simFlags) (*session, error) {
	file, err := config.Load(viper.New(), g.configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := file.Surface()
	if err != nil {
		return nil, err
	}

	backupPath := file.Retention.BackupPath
	if f.backupDB != "" {
		backupPath = f.backupDB
	}

	s := &session{
		file:  file,
		clock: sim.NewClock(time.Now()),
	}
	opts := []surface.Option{surface.WithClock(s.clock.Now)}
	if backupPath != "" {
		store, err := sqlitestore.Open(backupPath, cfg.Retention.BackupCapacity)
		if err != nil {
			return nil, fmt.Errorf("open backup store: %w", err)
		}
		s.store = store
		opts = append(opts, surface.WithBackupStore(store))
	}

	s.surface, err = surface.New(cfg, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) run(ctx context.Context, f *simFlags) (sim.Report, error) {
	return sim.Run(ctx, s.surface, s.clock, f.config())
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
