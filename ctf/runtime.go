// Package ctf implements the root operation surface (§6): World, Tensor
// and the eight collective operations (Contract, Sum, Scale, Slice,
// Permute, Write, Read, Reduce) that tie together C1–C7 (algebra, kernel,
// symmetry, reducer, redist, plan) and the comm/grid/arena primitives
// underneath them.
package ctf

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ctfgo/ctf/arena"
	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/internal/workerpool"
)

// Config configures a World: communicator size lives in the comm.Comm
// passed to NewWorld, everything else -- arena size, worker pool shape,
// default virtualization factor, base logger -- is set here, built up via
// functional options (Option) the way the teacher's DotGeneralBuilder is
// configured before Done().
type Config struct {
	ArenaBytes  int
	Workers     int
	ChunkSize   int
	DefaultVirt int
	Logger      zerolog.Logger
}

// Option configures a Config. See WithArenaBytes, WithLogger, WithWorkers,
// WithDefaultVirt.
type Option func(*Config)

// WithArenaBytes sets the Runtime's scratch arena's initial capacity.
func WithArenaBytes(n int) Option {
	return func(c *Config) { c.ArenaBytes = n }
}

// WithLogger overrides the base zerolog.Logger the Runtime scopes with
// rank/world_size fields. Defaults to a console writer on stderr, the
// way itohio-EasyRobot's pkg/logger package does.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithWorkers sets the shared-memory worker pool's concurrency and chunk
// size (§5); chunkSize <= 0 means "one chunk per worker slot".
func WithWorkers(workers, chunkSize int) Option {
	return func(c *Config) { c.Workers, c.ChunkSize = workers, chunkSize }
}

// WithDefaultVirt records a default virtualization factor in
// Runtime.DefaultVirt. NewTensor does not read it: every Mapping passed
// to NewTensor carries its own per-dimension Virt.
func WithDefaultVirt(v int) Option {
	return func(c *Config) { c.DefaultVirt = v }
}

func defaultConfig() Config {
	return Config{
		ArenaBytes:  1 << 20,
		Workers:     1,
		DefaultVirt: 1,
		Logger:      zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
	}
}

// Runtime is the process-wide collapsed state (§9): scratch arena,
// scoped logger, worker pool and a monotonic tensor-instance counter, all
// owned by one World.
type Runtime struct {
	Arena *arena.Region
	Log   zerolog.Logger
	Pool  *workerpool.Pool

	DefaultVirt int

	mu        sync.Mutex
	instances int64
}

func newRuntime(cfg Config, rank, size int) *Runtime {
	return &Runtime{
		Arena:       arena.New(cfg.ArenaBytes),
		Log:         cfg.Logger.With().Int("rank", rank).Int("world_size", size).Logger(),
		Pool:        workerpool.New(cfg.Workers, cfg.ChunkSize),
		DefaultVirt: cfg.DefaultVirt,
	}
}

func (r *Runtime) nextInstance() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances++
	return r.instances
}

// World wraps one rank's communicator plus its Runtime. Every Tensor
// built from a World shares that one Runtime (§9).
type World struct {
	Comm    comm.Comm
	Runtime *Runtime
}

// NewWorld builds a World over an existing communicator (one value of
// comm.NewLocalWorld's return slice, in the shipped simulated binding).
func NewWorld(c comm.Comm, opts ...Option) *World {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	w := &World{Comm: c, Runtime: newRuntime(cfg, c.Rank(), c.Size())}
	w.Runtime.Log.Debug().Msg("world constructed")
	return w
}

// Close releases the World's resources. The arena's backing array is
// garbage collected normally; Close exists so callers have a single
// place to log teardown and so a future real binding has a hook to tear
// down network resources (§1: comm.Comm is an interface precisely so a
// real binding can be dropped in later).
func (w *World) Close() {
	w.Runtime.Log.Debug().Msg("world closed")
}
