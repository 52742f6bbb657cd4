package xtables

import (
	"encoding/json"
	"fmt"

	"github.com/Kobeeeef/XTABLES/internal/telemetry"
)

// encodeClientStatistics renders a telemetry snapshot as JSON. This is a
// diagnostic payload, not data-plane traffic, so it does not go through
// the TLV wire codec (internal/wire) the way a Message's PUT/GET value
// does — there is no reason for a human inspecting a telemetry reply
// with a packet sniffer to need the TLV scheme to read it.
func encodeClientStatistics(s telemetry.ClientStatistics) ([]byte, error) {
	payload := struct {
		NanoTime       int64   `json:"nano_time"`
		MaxMemory      uint64  `json:"max_memory"`
		UsedMemory     uint64  `json:"used_memory"`
		FreeMemory     uint64  `json:"free_memory"`
		CPUPercent     float64 `json:"cpu_percent"`
		ProcessorCount int     `json:"processor_count"`
		ThreadCount    int     `json:"thread_count"`
		HostIP         string  `json:"host_ip"`
		Hostname       string  `json:"hostname"`
		PID            int     `json:"pid"`
		RuntimeName    string  `json:"runtime_name"`
		RuntimeVersion string  `json:"runtime_version"`
		ClientVersion  string  `json:"client_version"`
		Health         string  `json:"health"`
		BufferSize     int     `json:"buffer_size"`
		BufferCapacity int     `json:"buffer_capacity"`
		UUID           string  `json:"uuid"`
	}{
		NanoTime:       s.NanoTime,
		MaxMemory:      s.MaxMemory,
		UsedMemory:     s.UsedMemory,
		FreeMemory:     s.FreeMemory,
		CPUPercent:     s.CPUPercent,
		ProcessorCount: s.ProcessorCount,
		ThreadCount:    s.ThreadCount,
		HostIP:         s.HostIP,
		Hostname:       s.Hostname,
		PID:            s.PID,
		RuntimeName:    s.RuntimeName,
		RuntimeVersion: s.RuntimeVersion,
		ClientVersion:  s.ClientVersion,
		Health:         s.Health.String(),
		BufferSize:     s.BufferSize,
		BufferCapacity: s.BufferCapacity,
		UUID:           s.UUID.String(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("xtables: marshal telemetry snapshot: %w", err)
	}
	return b, nil
}
