package runner

import (
	"sync"
	"time"

	"github.com/forkops/forksync/internal/models"
)

// Phase names the stage a run is currently in.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseListing    Phase = "listing"
	PhaseSyncing    Phase = "syncing"
	PhaseCleanup    Phase = "cleanup"
	PhasePublishing Phase = "publishing"
	PhaseDone       Phase = "done"
)

// Status is a point-in-time snapshot of the run for the status endpoint.
type Status struct {
	Phase       Phase            `json:"phase"`
	CurrentRepo string           `json:"current_repo,omitempty"`
	StartedAt   time.Time        `json:"started_at,omitempty"`
	Report      models.RunReport `json:"report"`
}

// Tracker exposes live run state to the status server. All methods are safe
// on a nil receiver so the runner never has to branch on its presence.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{status: Status{Phase: PhaseIdle}}
}

// Snapshot returns the current status.
func (t *Tracker) Snapshot() Status {
	if t == nil {
		return Status{Phase: PhaseIdle}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tracker) start(report *models.RunReport) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = Status{Phase: PhaseListing, StartedAt: report.StartedAt, Report: *report}
}

func (t *Tracker) finish(report *models.RunReport) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = PhaseDone
	t.status.CurrentRepo = ""
	t.status.Report = *report
}

func (t *Tracker) setPhase(phase Phase) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = phase
}

func (t *Tracker) setRepo(repo string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.CurrentRepo = repo
}

func (t *Tracker) update(report *models.RunReport) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Report = *report
}
