package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type uniqueUsers struct {
	counter    prometheus.Gauge
	usersCache map[string]struct{}
	mu         sync.RWMutex
}

const userCountPerWeek = "users_count_per_week"

var totalUniqueUsersPerWeekMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: leasePlanner,
		Name:      userCountPerWeek,
		Help:      "number of distinct users calling the api during the current week",
	},
)

// UniqueUsersPerWeek is reset weekly by the api server.
var UniqueUsersPerWeek = &uniqueUsers{
	counter:    totalUniqueUsersPerWeekMetric,
	usersCache: make(map[string]struct{}),
}

func (u *uniqueUsers) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.usersCache = make(map[string]struct{})
	u.counter.Set(0)
}

func (u *uniqueUsers) Observe(username string) {
	if username == "" {
		return
	}

	u.mu.RLock()
	_, seen := u.usersCache[username]
	u.mu.RUnlock()
	if seen {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.usersCache[username]; exists {
		return
	}
	u.usersCache[username] = struct{}{}
	u.counter.Inc()
}

func (u *uniqueUsers) Count() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.usersCache)
}
