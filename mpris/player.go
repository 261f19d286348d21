package mpris

import (
	"time"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/prop"
	"github.com/sirupsen/logrus"

	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
)

// TimeInUs is a duration expressed in microseconds, the unit MPRIS2 uses
// for Position and mpris:length. Ground: the teacher mpris package's own
// TimeInUs/UsFromDuration helper.
type TimeInUs int64

func usFromDuration(d time.Duration) TimeInUs {
	return TimeInUs(d.Microseconds())
}

func (t TimeInUs) duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}

// PlaybackStatus is the MPRIS2 Player.PlaybackStatus enum.
type PlaybackStatus string

const (
	PlaybackPlaying PlaybackStatus = "Playing"
	PlaybackPaused  PlaybackStatus = "Paused"
	PlaybackStopped PlaybackStatus = "Stopped"
)

// LoopStatus is the MPRIS2 Player.LoopStatus enum. Panharmonicon has no
// loop/repeat concept (stations are an endless stream), so this is always
// None and read-only.
type LoopStatus string

const loopStatusNone LoopStatus = "None"

// playerObject implements org.mpris.MediaPlayer2.Player. It turns the
// transport control methods a desktop shell invokes into messages.Request
// values, and renders incoming messages.State onto the exported DBus
// properties. Ground: teacher mpris/player.go's method/property set,
// rewritten against this repo's own Track/State shapes since the teacher
// file's own MediaController dependency was never defined in the pack.
type playerObject struct {
	requests bus.RequestSender
	props    *prop.Properties

	status   PlaybackStatus
	track    models.Track
	hasTrack bool
	elapsed  time.Duration
	volume   float64
}

func newPlayerObject(requests bus.RequestSender) *playerObject {
	return &playerObject{requests: requests, status: PlaybackStopped, volume: 1.0}
}

func (p *playerObject) send(req messages.Request) {
	if err := p.requests.TrySend(req); err != nil {
		logrus.Warnf("mpris: %v", err)
	}
}

// updateStatus applies one broadcast State to the player's local view and
// pushes any changed properties over DBus. Called from Adapter.loop for
// every State received, so it must not block.
func (p *playerObject) updateStatus(s messages.State) {
	switch s.Kind {
	case messages.StTrackStarting:
		p.track, p.hasTrack = s.Track, true
		p.elapsed = 0
		p.status = PlaybackPlaying
		p.publishAll()
	case messages.StPlaying:
		p.status = PlaybackPlaying
		p.elapsed = s.Elapsed
		p.publishStatusAndPosition()
	case messages.StPaused:
		p.status = PlaybackPaused
		p.elapsed = s.Elapsed
		p.publishStatusAndPosition()
	case messages.StStopped:
		p.status = PlaybackStopped
		p.hasTrack = false
		p.elapsed = 0
		p.publishAll()
	case messages.StVolume:
		p.volume = s.Volume
		p.publishVolume()
	case messages.StMuted:
		p.publishVolume()
	case messages.StUnmuted:
		p.publishVolume()
	}
}

func (p *playerObject) publishAll() {
	if p.props == nil {
		return
	}
	p.props.SetMust("org.mpris.MediaPlayer2.Player", "PlaybackStatus", string(p.status))
	p.props.SetMust("org.mpris.MediaPlayer2.Player", "Metadata", p.metadata())
}

func (p *playerObject) publishStatusAndPosition() {
	if p.props == nil {
		return
	}
	p.props.SetMust("org.mpris.MediaPlayer2.Player", "PlaybackStatus", string(p.status))
}

func (p *playerObject) publishVolume() {
	if p.props == nil {
		return
	}
	p.props.SetMust("org.mpris.MediaPlayer2.Player", "Volume", p.volume)
}

// metadata builds the MPRIS2 Metadata dictionary for the current track.
// Ground: the MPRIS2 spec's standard xesam/mpris metadata keys; unrated,
// lengthless tracks simply omit those keys, matching how real clients
// treat absent metadata.
func (p *playerObject) metadata() map[string]dbus.Variant {
	if !p.hasTrack {
		return map[string]dbus.Variant{}
	}
	m := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/Track/" + sanitizeObjectPathSegment(p.track.TrackToken))),
		"xesam:title":   dbus.MakeVariant(p.track.Title),
		"xesam:artist":  dbus.MakeVariant([]string{p.track.Artist}),
		"xesam:album":   dbus.MakeVariant(p.track.Album),
	}
	if p.track.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(int64(usFromDuration(p.track.Duration)))
	}
	return m
}

func (p *playerObject) onVolume(c *prop.Change) *dbus.Error {
	v, ok := c.Value.(float64)
	if !ok {
		return dbus.MakeFailedError(nil)
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.send(messages.Volume(v))
	return nil
}

func (p *playerObject) properties() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"PlaybackStatus": newProp(string(PlaybackStopped), false, nil),
		"LoopStatus":     newProp(string(loopStatusNone), false, nil),
		"Rate":           newProp(1.0, false, nil),
		"Shuffle":        newProp(false, false, nil),
		"Metadata":       newProp(map[string]dbus.Variant{}, false, nil),
		"Volume":         newProp(p.volume, true, p.onVolume),
		"Position":       newProp(int64(0), false, nil),
		"MinimumRate":    newProp(1.0, false, nil),
		"MaximumRate":    newProp(1.0, false, nil),
		"CanGoNext":      newProp(true, false, nil),
		"CanGoPrevious":  newProp(false, false, nil),
		"CanPlay":        newProp(true, false, nil),
		"CanPause":       newProp(true, false, nil),
		"CanSeek":        newProp(false, false, nil),
		"CanControl":     newProp(true, false, nil),
	}
}

// Next skips the current track. Pandora stations have no "previous": the
// Model's Stop(UserRequest) path (ground: model.rs's untune-on-skip
// semantics) is the closest equivalent MPRIS2 exposes.
func (p *playerObject) Next() *dbus.Error {
	p.send(messages.Stop(models.StopReasonUserRequest))
	return nil
}

// Previous is unsupported: Pandora stations stream forward only. CanGoPrevious
// is false, so compliant clients shouldn't call this, but answer politely
// rather than erroring if one does anyway.
func (p *playerObject) Previous() *dbus.Error {
	return nil
}

func (p *playerObject) Pause() *dbus.Error {
	p.send(messages.Pause())
	return nil
}

func (p *playerObject) PlayPause() *dbus.Error {
	p.send(messages.TogglePause())
	return nil
}

func (p *playerObject) Play() *dbus.Error {
	p.send(messages.Unpause())
	return nil
}

func (p *playerObject) Stop() *dbus.Error {
	p.send(messages.Stop(models.StopReasonUserRequest))
	return nil
}

// Seek, SetPosition and OpenUri are explicit Non-goals (spec.md §1): Pandora
// streams are not seekable. CanSeek is false; these exist only so
// strict MPRIS2 clients find the methods present.
func (p *playerObject) Seek(offset int64) *dbus.Error {
	return dbus.MakeFailedError(errSeekUnsupported)
}

func (p *playerObject) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	return dbus.MakeFailedError(errSeekUnsupported)
}

func (p *playerObject) OpenUri(uri string) *dbus.Error {
	return dbus.MakeFailedError(errSeekUnsupported)
}

var errSeekUnsupported = &unsupportedOpError{"seeking is not supported"}

type unsupportedOpError struct{ msg string }

func (e *unsupportedOpError) Error() string { return e.msg }
