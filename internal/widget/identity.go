package widget

import (
	"fmt"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Identity hands out the session id for one widget activation.
type Identity struct {
	once sync.Once
	id   string
	now  func() time.Time
}

func NewIdentity() *Identity {
	return &Identity{now: time.Now}
}

// SessionID returns the activation's session id, generating it on first use.
func (i *Identity) SessionID() string {
	i.once.Do(func() {
		now := time.Now
		if i.now != nil {
			now = i.now
		}
		i.id = fmt.Sprintf("session_%d_%s", now().UnixMilli(), shortuuid.New())
	})
	return i.id
}
