package apirouterv1

import (
	"github.com/gorilla/mux"

	controllerv1 "github.com/janhoon/vizor/querier/controller"
	"github.com/janhoon/vizor/querier/registry"
	"github.com/janhoon/vizor/querier/service"
)

func RouteDataSourceApis(app *mux.Router, reg *registry.Registry, svc *service.QueryService) {
	dc := &controllerv1.DataSourceController{
		Registry: reg,
		Service:  svc,
	}
	app.HandleFunc("/api/v1/datasources", dc.List).Methods("GET")
	app.HandleFunc("/api/v1/datasources/{name}", dc.Get).Methods("GET")
	app.HandleFunc("/api/v1/datasources/{name}/health", dc.Health).Methods("GET")
}
