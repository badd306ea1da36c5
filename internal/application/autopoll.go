package application

import (
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/protocol"
)

const scanCommand = "SCAN"

// AutoPoller issues SCAN requests on a fixed period while enabled.
type AutoPoller struct {
	session *Session
	config  domain.AutoScanConfig
}

func NewAutoPoller(session *Session) *AutoPoller {
	return &AutoPoller{session: session, config: domain.DefaultAutoScanConfig()}
}

// Enable clamps period and frames and arms an immediate first poll.
func (p *AutoPoller) Enable(period time.Duration, frames int, fast bool) domain.AutoScanConfig {
	p.config = domain.AutoScanConfig{
		Enabled: true,
		Period:  domain.ClampAutoPeriod(period),
		Frames:  domain.ClampFrames(frames),
		Fast:    fast,
	}
	return p.config
}

func (p *AutoPoller) Disable() {
	p.config.Enabled = false
}

func (p *AutoPoller) Config() domain.AutoScanConfig {
	return p.config
}

// Tick sends one SCAN when the poller is due and the session is idle. It reports
// whether a request went out.
func (p *AutoPoller) Tick(now time.Time) bool {
	if !p.config.Enabled || p.session.Busy() || !p.config.Due(now) {
		return false
	}

	p.config.LastSentAt = now
	_, err := p.session.Submit(scanCommand, protocol.ScanArgs(p.config.Frames, p.config.Fast))
	return err == nil
}
