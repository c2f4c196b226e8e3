package recall

import (
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/petrijr/recall/pkg/api"
)

// envDeadlines is the environment-backed deadline configuration.
type envDeadlines struct {
	Spinner time.Duration `env:"RECALL_SPINNER_DEADLINE" envDefault:"2s"`
	Popup   time.Duration `env:"RECALL_POPUP_DEADLINE" envDefault:"8s"`
}

// EnvDeadlines is a DeadlineSource reading RECALL_SPINNER_DEADLINE and
// RECALL_POPUP_DEADLINE from the environment on every read, so a live
// engine picks up configuration pushes mid-cycle. Countdowns already
// running only ever extend; a shorter value applies from the next cycle.
type EnvDeadlines struct {
	mu   sync.Mutex
	last envDeadlines
}

// NewEnvDeadlines parses the environment once up front so malformed values
// fail at construction time rather than mid-cycle.
func NewEnvDeadlines() (*EnvDeadlines, error) {
	var cfg envDeadlines
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &EnvDeadlines{last: cfg}, nil
}

// Deadlines re-reads the environment, falling back to the last good values
// when a read fails.
func (d *EnvDeadlines) Deadlines() (time.Duration, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var cfg envDeadlines
	if err := env.Parse(&cfg); err == nil {
		d.last = cfg
	}
	return d.last.Spinner, d.last.Popup
}

var _ api.DeadlineSource = (*EnvDeadlines)(nil)
