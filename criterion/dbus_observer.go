package criterion

import (
	"context"

	"github.com/godbus/dbus/v5"

	"pfw/internal/plog"
)

// dbusInterface is the interface a DBusObserver emits signals under.
const dbusInterface = "org.paramfw.Criterion"

// DBusObserver mirrors criterion state changes onto the system bus as a
// best-effort org.paramfw.Criterion.Changed signal, grounded on
// dbusutil.PropertyHolder's connect-once-at-construction shape. It is
// meant to be combined with the engine's own Observer via MultiObserver
// rather than installed alone: the in-process, synchronous notification
// required by spec.md §4.J/§9 must keep working even if the bus is
// unreachable, so emission failures here are logged, never returned.
type DBusObserver struct {
	conn *dbus.Conn
	path dbus.ObjectPath
	ctx  context.Context
}

// NewDBusObserver connects to the system bus and prepares to emit
// signals for path.
func NewDBusObserver(ctx context.Context, path dbus.ObjectPath) (*DBusObserver, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}
	return &DBusObserver{conn: conn, path: path, ctx: ctx}, nil
}

// Close releases the underlying bus connection.
func (o *DBusObserver) Close() error {
	return o.conn.Close()
}

// CriterionChanged implements Observer.
func (o *DBusObserver) CriterionChanged(name string, oldState, newState int64) {
	signal := dbusInterface + ".Changed"
	if err := o.conn.Emit(o.path, signal, name, oldState, newState); err != nil {
		plog.Warnf(o.ctx, "dbus emit %s for criterion %q: %v", signal, name, err)
	}
}

// MultiObserver fans a state change out to every observer in order,
// letting a criterion's single observer slot (spec.md §4.J) carry both
// the engine's synchronous apply-cycle trigger and a DBusObserver's
// best-effort signal.
type MultiObserver []Observer

// CriterionChanged implements Observer.
func (m MultiObserver) CriterionChanged(name string, oldState, newState int64) {
	for _, o := range m {
		if o != nil {
			o.CriterionChanged(name, oldState, newState)
		}
	}
}
