// Package version exposes build information injected at link time through
// github.com/prometheus/common/version.
package version

import (
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
)

const program = "fleet_telemetry"

func Branch() string {
	return version.Branch
}

func Revision() string {
	return version.Revision
}

func Info() string {
	return version.Info()
}

func BuildContext() string {
	return version.BuildContext()
}

// RegisterCollector exposes the build info as a metric.
func RegisterCollector(registry prometheus.Registerer) error {
	return registry.Register(versioncollector.NewCollector(program))
}
