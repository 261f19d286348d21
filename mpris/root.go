package mpris

import (
	"github.com/godbus/dbus"
	"github.com/godbus/dbus/prop"
	"github.com/sirupsen/logrus"

	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
)

// rootObject implements org.mpris.MediaPlayer2, the top-level interface
// every MPRIS2 player exposes. Panharmonicon has no window to raise, so
// Raise is a no-op and CanRaise is false; Quit maps onto the same user
// request the ui package's quit keybinding sends.
type rootObject struct {
	appName  string
	requests bus.RequestSender
}

func newRootObject(appName string, requests bus.RequestSender) *rootObject {
	return &rootObject{appName: appName, requests: requests}
}

func (r *rootObject) Raise() *dbus.Error {
	return nil
}

func (r *rootObject) Quit() *dbus.Error {
	r.send(messages.Quit())
	return nil
}

func (r *rootObject) send(req messages.Request) {
	if err := r.requests.TrySend(req); err != nil {
		logrus.Warnf("mpris: %v", err)
	}
}

func (r *rootObject) properties() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"CanQuit":             newProp(true, false, nil),
		"CanRaise":            newProp(false, false, nil),
		"HasTrackList":        newProp(false, false, nil),
		"Identity":            newProp(r.appName, false, nil),
		"DesktopEntry":        newProp(r.appName, false, nil),
		"SupportedUriSchemes": newProp([]string{}, false, nil),
		"SupportedMimeTypes":  newProp([]string{}, false, nil),
	}
}
