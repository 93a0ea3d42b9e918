package factory

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/monx-observability/fleet-telemetry/internal/api"
	"github.com/monx-observability/fleet-telemetry/internal/config"
)

// CreateHTTPServer serves the prometheus metrics and the read api on the same port.
func CreateHTTPServer(conf config.Metrics, gatherer prometheus.Gatherer, handler *api.Handler) *http.Server {
	ret := &http.Server{Addr: fmt.Sprintf(":%v", conf.Port)}
	ret.SetKeepAlivesEnabled(true)
	ret.IdleTimeout = 5 * time.Second
	ret.ReadHeaderTimeout = 5 * time.Second

	router := http.NewServeMux()
	router.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if handler != nil {
		handler.Register(router)
	}

	ret.Handler = router

	return ret
}
