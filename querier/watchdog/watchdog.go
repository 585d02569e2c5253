package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/janhoon/vizor/querier/registry"
	"github.com/janhoon/vizor/querier/utils/logger"
)

const probeTimeout = time.Second * 10

var (
	mtx      sync.RWMutex
	reg      *registry.Registry
	statuses = map[string]error{}
	started  bool
)

// Init starts the background prober. Every interval it runs TestConnection
// against each provisioned datasource and keeps the last outcome. A failing
// datasource is reported, never fatal: dashboards stay up while a backend
// flaps.
func Init(r *registry.Registry, interval time.Duration) {
	mtx.Lock()
	defer mtx.Unlock()
	if started {
		return
	}
	started = true
	reg = r
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		probeAll()
		for range ticker.C {
			probeAll()
		}
	}()
}

func probeAll() {
	for _, ds := range reg.List() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		err := reg.TestConnection(ctx, ds.Name)
		cancel()
		mtx.Lock()
		statuses[ds.Name] = err
		mtx.Unlock()
		if err != nil {
			logger.Info("---- WATCHDOG REPORT ----")
			logger.Error("datasource ", ds.Name, " not responding: ", err.Error())
		}
	}
}

// Status is a snapshot of the last probe per datasource. Names never probed
// are absent.
func Status() map[string]error {
	mtx.RLock()
	defer mtx.RUnlock()
	out := make(map[string]error, len(statuses))
	for k, v := range statuses {
		out[k] = v
	}
	return out
}
