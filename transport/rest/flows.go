package rest

import (
	"sync"

	"github.com/uzzapchat/uzzap"
)

// FlowRegistry keeps at most one profile synchronization flow per user id,
// so concurrent requests for the same user share one serialized flow. A
// flow lives from its first use after sign-in until sign-out drops it.
type FlowRegistry struct {
	Profiles uzzap.ProfileStore
	Avatars  uzzap.AvatarStore

	mutex sync.Mutex
	flows map[uzzap.UserId]*uzzap.ProfileSync
}

func NewFlowRegistry(profiles uzzap.ProfileStore, avatars uzzap.AvatarStore) *FlowRegistry {
	return &FlowRegistry{
		Profiles: profiles,
		Avatars:  avatars,
		flows:    map[uzzap.UserId]*uzzap.ProfileSync{},
	}
}

func (r *FlowRegistry) ForUser(userId uzzap.UserId) *uzzap.ProfileSync {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	flow, ok := r.flows[userId]
	if !ok {
		flow = uzzap.NewProfileSync(r.Profiles, r.Avatars)
		r.flows[userId] = flow
	}
	return flow
}

func (r *FlowRegistry) Drop(userId uzzap.UserId) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.flows, userId)
}
