package infra

import (
	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

const (
	logindDest         = "org.freedesktop.login1"
	logindPath         = "/org/freedesktop/login1"
	logindManagerIface = "org.freedesktop.login1.Manager"
	logindSessionIface = "org.freedesktop.login1.Session"
)

// translateLogindSignal maps a logind D-Bus signal to a SystemSignal.
func translateLogindSignal(name string, body []interface{}) (domain.SystemSignal, bool) {
	switch name {
	case logindManagerIface + ".PrepareForSleep":
		if len(body) != 1 {
			return "", false
		}
		start, ok := body[0].(bool)
		if !ok {
			return "", false
		}
		if start {
			return domain.SignalSuspend, true
		}
		return domain.SignalResume, true
	case logindSessionIface + ".Lock":
		return domain.SignalLock, true
	case logindSessionIface + ".Unlock":
		return domain.SignalUnlock, true
	}
	return "", false
}

// InhibitorAction converts a system signal into the reducer action it implies.
func InhibitorAction(sig domain.SystemSignal) (domain.Action, bool) {
	switch sig {
	case domain.SignalSuspend:
		return domain.AddInhibitor{ID: domain.InhibitorSuspend}, true
	case domain.SignalResume:
		return domain.RemoveInhibitor{ID: domain.InhibitorSuspend}, true
	case domain.SignalLock:
		return domain.AddInhibitor{ID: domain.InhibitorLock}, true
	case domain.SignalUnlock:
		return domain.RemoveInhibitor{ID: domain.InhibitorLock}, true
	}
	return nil, false
}
