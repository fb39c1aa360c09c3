package utils

import (
	"github.com/shirou/gopsutil/v4/cpu"
)

// GetCPUUsage returns CPU usage since the previous call as a percentage.
// It does not block.
func GetCPUUsage() float64 {
	percentage, err := cpu.Percent(0, false)
	if err != nil || len(percentage) == 0 {
		return 0
	}
	return percentage[0]
}
