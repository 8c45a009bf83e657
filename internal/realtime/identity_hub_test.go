package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"dealdesk/internal/models"
)

type identityLog struct {
	mu   sync.Mutex
	seen []*models.Identity
}

func (l *identityLog) add(id *models.Identity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, id)
}

func TestIdentityHub_ImmediateThenPublished(t *testing.T) {
	hub := NewIdentityHub()
	alice := &models.Identity{ID: "alice"}

	var page1, page2, other identityLog
	cancel1 := hub.OnIdentityChange("s1", nil, page1.add)
	cancel2 := hub.OnIdentityChange("s1", nil, page2.add)
	cancelOther := hub.OnIdentityChange("s2", nil, other.add)
	defer cancelOther()

	assert.Equal(t, []*models.Identity{nil}, page1.seen)

	assert.Equal(t, 2, hub.Publish("s1", alice))
	assert.Equal(t, []*models.Identity{nil, alice}, page1.seen)
	assert.Equal(t, []*models.Identity{nil, alice}, page2.seen)
	assert.Equal(t, []*models.Identity{nil}, other.seen)

	cancel1()
	assert.Equal(t, 1, hub.Publish("s1", nil))
	assert.Len(t, page1.seen, 2)
	assert.Equal(t, []*models.Identity{nil, alice, nil}, page2.seen)

	cancel2()
	assert.Equal(t, 0, hub.Publish("s1", alice))
}
