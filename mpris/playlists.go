package mpris

import (
	"github.com/godbus/dbus"
	"github.com/godbus/dbus/prop"

	"github.com/tvierimaa/panharmonicon/messages"
)

// mprisPlaylist is the (path, name, icon) struct org.mpris.MediaPlayer2.
// Playlists.GetPlaylists returns per entry.
type mprisPlaylist struct {
	Path dbus.ObjectPath
	Name string
	Icon string
}

// playlistsObject implements org.mpris.MediaPlayer2.Playlists, exposing
// Pandora stations (spec.md §6's StAddStation catalog) as MPRIS playlists so
// shells that render an MPRIS playlist picker can list and show which
// station is tuned. Ground: the real org.mpris.MediaPlayer2.Playlists
// interface; stations have no teacher-side MPRIS analog since jellycli's
// own mpris package never implemented this interface.
type playlistsObject struct {
	props *prop.Properties

	order  []string
	names  map[string]string
	active string
}

func newPlaylistsObject() *playlistsObject {
	return &playlistsObject{names: make(map[string]string)}
}

func (p *playlistsObject) updateStatus(s messages.State) {
	switch s.Kind {
	case messages.StAddStation:
		if _, known := p.names[s.StationID]; !known {
			p.order = append(p.order, s.StationID)
		}
		p.names[s.StationID] = s.StationName
		p.publishCount()
	case messages.StTuned:
		p.active = s.StationID
		p.publishActive()
	case messages.StDisconnected:
		p.order = nil
		p.names = make(map[string]string)
		p.active = ""
		p.publishCount()
		p.publishActive()
	}
}

func (p *playlistsObject) publishCount() {
	if p.props == nil {
		return
	}
	p.props.SetMust("org.mpris.MediaPlayer2.Playlists", "PlaylistCount", uint32(len(p.order)))
}

func (p *playlistsObject) publishActive() {
	if p.props == nil {
		return
	}
	p.props.SetMust("org.mpris.MediaPlayer2.Playlists", "ActivePlaylist", p.activePlaylist())
}

func (p *playlistsObject) activePlaylist() struct {
	Valid    bool
	Playlist mprisPlaylist
} {
	name, ok := p.names[p.active]
	if !ok {
		return struct {
			Valid    bool
			Playlist mprisPlaylist
		}{Valid: false}
	}
	return struct {
		Valid    bool
		Playlist mprisPlaylist
	}{Valid: true, Playlist: mprisPlaylist{Path: stationObjectPath(p.active), Name: name}}
}

func stationObjectPath(stationID string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/mpris/MediaPlayer2/Playlist/" + sanitizeObjectPathSegment(stationID))
}

func (p *playlistsObject) properties() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"PlaylistCount":  newProp(uint32(0), false, nil),
		"Orderings":      newProp([]string{"Alphabetical"}, false, nil),
		"ActivePlaylist": newProp(p.activePlaylist(), false, nil),
	}
}

// GetPlaylists implements org.mpris.MediaPlayer2.Playlists.GetPlaylists.
// order and reverse are accepted for signature compatibility but stations
// are always returned in the order they were first seen (order is not
// a meaningful concept Pandora's API exposes).
func (p *playlistsObject) GetPlaylists(index, maxCount uint32, order string, reverse bool) ([]mprisPlaylist, *dbus.Error) {
	out := make([]mprisPlaylist, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, mprisPlaylist{Path: stationObjectPath(id), Name: p.names[id]})
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if int(index) >= len(out) {
		return []mprisPlaylist{}, nil
	}
	end := len(out)
	if maxCount > 0 && int(index)+int(maxCount) < end {
		end = int(index) + int(maxCount)
	}
	return out[index:end], nil
}
