package infra

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

type ioregIdleProvider struct {
	path string
}

func newIdleProvider() domain.IdleProvider {
	path, err := exec.LookPath("ioreg")
	if err != nil {
		return unsupportedIdleProvider{}
	}
	return &ioregIdleProvider{path: path}
}

func (p *ioregIdleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command(p.path, "-c", "IOHIDSystem", "-d", "4").Output()
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	return parseHIDIdleTime(output)
}
