package apirouterv1

import (
	"time"

	"github.com/gorilla/mux"

	controllerv1 "github.com/janhoon/vizor/querier/controller"
	"github.com/janhoon/vizor/querier/service"
)

func RouteQueryApis(app *mux.Router, svc *service.QueryService, timeout time.Duration) {
	qc := &controllerv1.QueryController{
		Service: svc,
		Timeout: timeout,
	}
	app.HandleFunc("/api/v1/datasources/{name}/query", qc.Query).Methods("GET", "POST")
	app.HandleFunc("/api/v1/query", qc.BatchQuery).Methods("POST")
}
