// Package sysinfo collects host resource metrics and RDP listener state
// for the status, doctor and dashboard commands.
package sysinfo

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type System struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemUsed    uint64  `json:"mem_used"`
	MemTotal   uint64  `json:"mem_total"`
	DiskUsed   uint64  `json:"disk_used"`
	DiskTotal  uint64  `json:"disk_total"`
}

type Host struct {
	Hostname      string `json:"hostname"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	UptimeSec     uint64 `json:"uptime_sec"`
}

type Listener struct {
	RDPPortOpen    bool `json:"rdp_port_open"`
	SesmanPortOpen bool `json:"sesman_port_open"`
}

type Snapshot struct {
	System   System   `json:"system"`
	Host     Host     `json:"host"`
	Listener Listener `json:"listener"`
}

type Collector struct {
	mu         sync.RWMutex
	lastCPU    float64
	cpuRunning bool
	cpuDone    chan struct{}
}

// New creates a Collector with background CPU sampling started immediately.
// Use this for long-running processes like the dashboard.
func New() *Collector {
	c := &Collector{cpuDone: make(chan struct{})}
	c.cpuRunning = true
	go c.updateCPU()
	return c
}

// NewWithoutCPU creates a Collector without background sampling.
// Use this for short-lived commands like status.
func NewWithoutCPU() *Collector {
	return &Collector{cpuDone: make(chan struct{})}
}

// Stop halts background CPU sampling.
func (c *Collector) Stop() {
	c.mu.Lock()
	if c.cpuRunning {
		c.cpuRunning = false
		c.mu.Unlock()
		select {
		case c.cpuDone <- struct{}{}:
		default:
		}
	} else {
		c.mu.Unlock()
	}
}

func (c *Collector) updateCPU() {
	for {
		select {
		case <-c.cpuDone:
			return
		default:
			if percent, err := cpu.Percent(time.Second, false); err == nil && len(percent) > 0 {
				c.mu.Lock()
				c.lastCPU = percent[0]
				c.mu.Unlock()
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Collect gathers a best-effort snapshot. Individual probe failures leave
// their fields zeroed rather than failing the whole snapshot.
func (c *Collector) Collect(ctx context.Context, rdpPort, sesmanPort int) Snapshot {
	snap := Snapshot{}

	c.mu.RLock()
	snap.System.CPUPercent = c.lastCPU
	c.mu.RUnlock()

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.System.MemUsed = vm.Used
		snap.System.MemTotal = vm.Total
	}
	if du, err := disk.Usage("/"); err == nil {
		snap.System.DiskUsed = du.Used
		snap.System.DiskTotal = du.Total
	}
	if hi, err := host.InfoWithContext(ctx); err == nil {
		snap.Host.Hostname = hi.Hostname
		snap.Host.Platform = fmt.Sprintf("%s %s", hi.Platform, hi.PlatformVersion)
		snap.Host.KernelVersion = hi.KernelVersion
		snap.Host.UptimeSec = hi.Uptime
	}

	snap.Listener.RDPPortOpen = portOpen(rdpPort)
	snap.Listener.SesmanPortOpen = portOpen(sesmanPort)
	return snap
}

// portOpen probes a local TCP listener.
func portOpen(port int) bool {
	if port <= 0 {
		return false
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
