package infra

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

const (
	mutterIdleDest   = "org.gnome.Mutter.IdleMonitor"
	mutterIdlePath   = "/org/gnome/Mutter/IdleMonitor/Core"
	mutterIdleMethod = "org.gnome.Mutter.IdleMonitor.GetIdletime"
)

type xprintidleProvider struct {
	path string
}

// mutterIdleProvider asks GNOME Shell for idle time over the session bus.
// It works on Wayland sessions where xprintidle cannot see input.
type mutterIdleProvider struct {
	conn *dbus.Conn
}

func newIdleProvider() domain.IdleProvider {
	wayland := strings.EqualFold(os.Getenv("XDG_SESSION_TYPE"), "wayland")
	if path, err := exec.LookPath("xprintidle"); err == nil && !wayland {
		return &xprintidleProvider{path: path}
	}
	if conn, err := dbus.ConnectSessionBus(); err == nil {
		return &mutterIdleProvider{conn: conn}
	}
	return unsupportedIdleProvider{}
}

func (p *xprintidleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command(p.path).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(output)
}

func (p *mutterIdleProvider) IdleDuration() (time.Duration, error) {
	var millis uint64
	obj := p.conn.Object(mutterIdleDest, dbus.ObjectPath(mutterIdlePath))
	if err := obj.Call(mutterIdleMethod, 0).Store(&millis); err != nil {
		return 0, fmt.Errorf("mutter idle monitor: %w", err)
	}
	return time.Duration(millis) * time.Millisecond, nil
}
