package benchmarks

import (
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo captures the environment a benchmark ran in. Timings are
// meaningless across machines without it.
type HostInfo struct {
	Hostname   string  `json:"hostname" msgpack:"hostname"`
	OS         string  `json:"os" msgpack:"os"`
	Arch       string  `json:"arch" msgpack:"arch"`
	GoVersion  string  `json:"go_version" msgpack:"go_version"`
	CPUModel   string  `json:"cpu_model" msgpack:"cpu_model"`
	CPUCount   int     `json:"cpu_count" msgpack:"cpu_count"`
	MemTotalMB uint64  `json:"mem_total_mb" msgpack:"mem_total_mb"`
	MemUsedPct float64 `json:"mem_used_pct" msgpack:"mem_used_pct"`
}

// CollectHostInfo gathers host details via gopsutil. Failures are logged and
// tolerated; a partially filled struct is still useful.
func CollectHostInfo(log zerolog.Logger) HostInfo {
	info := HostInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		CPUCount:  runtime.NumCPU(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if cpuInfo, err := cpu.Info(); err != nil {
		log.Warn().Err(err).Msg("Failed to read CPU info")
	} else if len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		log.Warn().Err(err).Msg("Failed to read memory info")
	} else {
		info.MemTotalMB = memStat.Total / (1024 * 1024)
		info.MemUsedPct = memStat.UsedPercent
	}

	return info
}
