// Package warmup primes the normalization stages before serving traffic by
// running them repeatedly over a small synthetic dataset. This warms the
// allocator and internal pools so the first real request does not pay the
// cold-start cost.
package warmup

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/hohomsf/immunization-etl/internal/core/domain"
	"github.com/hohomsf/immunization-etl/internal/ports"
)

// Config defines how aggressively to warm up.
type Config struct {
	// Concurrency is the number of goroutines running warmup iterations.
	Concurrency int
	// Iterations per goroutine.
	Iterations int
	// Rows in the synthetic dataset.
	Rows int
	// Duration bounds the whole warmup (0 means no time limit).
	Duration time.Duration
	// ForceGC runs a garbage collection after warmup.
	ForceGC bool
}

// DefaultConfig returns the default warmup configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: runtime.NumCPU(),
		Iterations:  100,
		Rows:        64,
		Duration:    5 * time.Second,
		ForceGC:     true,
	}
}

// Manager runs warmup passes over registered stages.
type Manager struct {
	logger ports.Logger
	stages []ports.Stage
	config Config
}

// NewManager creates a warmup manager.
func NewManager(logger ports.Logger, config Config) *Manager {
	return &Manager{logger: logger, config: config}
}

// Register adds a stage to warm up. Stages run in registration order, so
// registering the pipeline's stages in pipeline order exercises the same
// schema handoff as a real run.
func (m *Manager) Register(st ports.Stage) {
	m.stages = append(m.stages, st)
}

// WarmUp runs the warmup passes.
func (m *Manager) WarmUp(ctx context.Context) {
	start := time.Now()
	m.logger.Info("Starting warmup",
		"stages", len(m.stages),
		"concurrency", m.config.Concurrency,
		"iterations", m.config.Iterations,
	)

	if m.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Duration)
		defer cancel()
	}

	var wg sync.WaitGroup
	for i := 0; i < m.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iter := 0; iter < m.config.Iterations; iter++ {
				select {
				case <-ctx.Done():
					return
				default:
				}
				ds := syntheticDataset(m.config.Rows)
				for _, st := range m.stages {
					out, err := st.Apply(ctx, ds)
					if err != nil {
						m.logger.Warn("Warmup stage error", "stage", st.Name(), "error", err)
						return
					}
					ds = out
				}
			}
		}()
	}
	wg.Wait()

	if m.config.ForceGC {
		m.logger.Debug("Forcing garbage collection after warmup")
		runtime.GC()
	}
	m.logger.Info("Warmup completed", "duration", time.Since(start))
}

// syntheticDataset builds a raw-shaped dataset resembling the immunization
// input so every stage has realistic work to do.
func syntheticDataset(rows int) domain.Dataset {
	ds := domain.New([]string{
		"Year", "Zone", "Vaccine", "# Eligible", "# Immunized", "% Coverage", "95% CI",
	})
	vaccines := []string{"HBV - Dose 1", "HPV - Dose 2", "MEN-C-ACYW135", "Tdap"}
	for i := 0; i < rows; i++ {
		_ = ds.AppendRow([]domain.Value{
			domain.NewInt(int64(2015 + i%8)),
			domain.NewString(fmt.Sprintf("Zone %d", i%4+1)),
			domain.NewString(vaccines[i%len(vaccines)]),
			domain.NewString("1,200"),
			domain.NewString("1,050"),
			domain.NewString("0.875"),
			domain.NewString("82.0-92.0"),
		})
	}
	return ds
}
