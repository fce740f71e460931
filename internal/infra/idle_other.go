//go:build !linux && !darwin && !windows

package infra

import "github.com/eliteGoblin/focusd/break_mon/internal/domain"

func newIdleProvider() domain.IdleProvider {
	return unsupportedIdleProvider{}
}
