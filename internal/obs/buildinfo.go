package obs

import (
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shoplane_build_info",
			Help: "Build metadata of the running identity service, value fixed at 1.",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// InitBuildInfo registers and sets the build metadata gauge. Safe to call
// more than once; only the first registration sticks.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}
