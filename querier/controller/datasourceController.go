package controllerv1

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/janhoon/vizor/querier/model"
	"github.com/janhoon/vizor/querier/registry"
	"github.com/janhoon/vizor/querier/service"
	"github.com/janhoon/vizor/querier/watchdog"
)

const healthProbeTimeout = time.Second * 10

type DataSourceController struct {
	Registry *registry.Registry
	Service  *service.QueryService
}

// dataSourceInfo is the descriptor plus the last watchdog verdict. The auth
// blob never leaves the process.
type dataSourceInfo struct {
	model.DataSource
	Health string `json:"health,omitempty"`
}

func (dc *DataSourceController) List(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	statuses := watchdog.Status()
	sources := dc.Registry.List()
	out := make([]dataSourceInfo, 0, len(sources))
	for _, ds := range sources {
		info := dataSourceInfo{DataSource: ds}
		if err, ok := statuses[ds.Name]; ok {
			if err == nil {
				info.Health = "up"
			} else {
				info.Health = "down"
			}
		}
		out = append(out, info)
	}
	writeJSON(w, out)
}

func (dc *DataSourceController) Get(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	name := mux.Vars(r)["name"]
	ds, ok := dc.Registry.Get(name)
	if !ok {
		writeError(404, (&model.NotFoundError{Name: name}).Error(), w)
		return
	}
	writeJSON(w, ds)
}

// Health probes the datasource live instead of reading the watchdog cache.
func (dc *DataSourceController) Health(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	name := mux.Vars(r)["name"]
	if _, ok := dc.Registry.Get(name); !ok {
		writeError(404, (&model.NotFoundError{Name: name}).Error(), w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()
	if err := dc.Service.TestConnection(ctx, name); err != nil {
		writeJSONCode(502, map[string]string{
			"status": "down",
			"error":  err.Error(),
		}, w)
		return
	}
	writeJSON(w, map[string]string{"status": "up"})
}
