package broadcast

import (
	"time"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// missingEntry tracks a message we've heard about via IHAVE but have not
// yet received in full, with the announcers we can GRAFT from.
type missingEntry struct {
	announcers []types.NodeId
	tried      int
	deadline   time.Time
}

func (m *missingEntry) addAnnouncer(id types.NodeId) {
	for _, a := range m.announcers {
		if a == id {
			return
		}
	}
	m.announcers = append(m.announcers, id)
}

// nextAnnouncer returns the next untried announcer, cycling back to the
// start once exhausted so a slow peer still eventually gets re-tried.
func (m *missingEntry) nextAnnouncer() (types.NodeId, bool) {
	if len(m.announcers) == 0 {
		return types.NodeId{}, false
	}
	id := m.announcers[m.tried%len(m.announcers)]
	m.tried++
	return id, true
}
