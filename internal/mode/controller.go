// Package mode implements the LIVE/DEMO operating mode state machine.
//
// The controller tracks cumulative spend for the current calendar day against
// a fixed daily cap. Mode is LIVE only while a credential is configured and
// today's spend is under the cap; any other combination is DEMO. The spend
// counter is shared by every concurrent request, so all reads and updates go
// through a single mutex. It is an explicit, injectable object rather than a
// package-level singleton so tests can construct isolated instances.
package mode

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

const dayFormat = "2006-01-02"

// Controller is the process-wide mode state.
type Controller struct {
	mu         sync.Mutex
	credential string
	capCents   float64
	spentCents float64
	day        string // calendar day the running total applies to

	now func() time.Time
}

// NewController creates a controller with the given upstream credential
// (empty means DEMO-only) and daily spend cap in cents.
func NewController(credential string, capCents float64) *Controller {
	c := &Controller{
		credential: credential,
		capCents:   capCents,
		now:        time.Now,
	}
	c.day = c.now().Format(dayFormat)
	return c
}

// SetClock replaces the wall clock, for day-boundary tests.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetCredential installs or clears the upstream credential at runtime.
func (c *Controller) SetCredential(credential string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = credential
}

// rollover resets the running total when the wall-clock day changes.
// Callers must hold c.mu.
func (c *Controller) rollover() {
	today := c.now().Format(dayFormat)
	if today != c.day {
		log.Printf("[INFO]  new day, spend counter reset (was %.2fc)", c.spentCents)
		c.day = today
		c.spentCents = 0
	}
}

// Evaluate returns the mode for one orchestration run. The decision is fixed
// for the run's duration; callers must not re-evaluate mid-stream.
func (c *Controller) Evaluate() models.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	if c.credential != "" && c.spentCents < c.capCents {
		return models.ModeLive
	}
	return models.ModeDemo
}

// Credential returns the configured upstream credential, if any.
func (c *Controller) Credential() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential
}

// RecordSpend adds a finalized request's cost to today's running total.
// The read-check-increment is atomic so two concurrent requests cannot both
// observe spend-under-cap and jointly overshoot unnoticed.
func (c *Controller) RecordSpend(cents float64) {
	if cents <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	before := c.spentCents
	c.spentCents += cents
	if before < c.capCents && c.spentCents >= c.capCents && c.credential != "" {
		log.Printf("[WARN]  daily spend cap hit (%.2fc >= %.2fc), switching to DEMO mode", c.spentCents, c.capCents)
	}
}

// SeedSpend initializes today's running total from persisted records at boot.
func (c *Controller) SeedSpend(cents float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	c.spentCents = cents
}

// Info reports the full mode state for the /mode endpoint.
func (c *Controller) Info() models.ModeInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	info := models.ModeInfo{
		Mode:            models.ModeDemo,
		Reason:          models.ReasonNoCredential,
		SpendTodayCents: round2(c.spentCents),
		SpendCapCents:   c.capCents,
	}
	if c.credential == "" {
		return info
	}
	if c.spentCents >= c.capCents {
		info.Reason = models.ReasonSpendCapReached
		return info
	}
	info.Mode = models.ModeLive
	info.Reason = models.ReasonCredentialPresent
	return info
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
