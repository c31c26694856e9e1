package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDegraded ComponentStatus = "degraded"
)

// Health represents the complete health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
	Details   any             `json:"details,omitempty"`
}

// StorageDetails describes the filesystem holding the upload directory.
type StorageDetails struct {
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	TotalBytes     uint64  `json:"total_bytes"`
	PercentageUsed float64 `json:"percentage_used"`
}

// HandleHealth reports per-component health; 503 only when unhealthy.
// Component details such as disk usage are only included for callers
// holding the API key.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth()
	if !validAPIKey(r, s.cfg.APIKey) {
		for name, c := range health.Components {
			c.Details = nil
			health.Components[name] = c
		}
	}

	statusCode := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(health)
}

// HandleReady succeeds once the upload directory is reachable.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	if c := s.checkUploadDirHealth(); c.Status == ComponentStatusDown {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "not_ready",
			"message": c.Message,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleLive provides a liveness probe (is the process running?)
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

func (s *Server) checkHealth() Health {
	health := Health{
		Timestamp:  time.Now(),
		Version:    s.cfg.Build.Version,
		Components: make(map[string]ComponentHealth),
	}

	health.Components["upload_dir"] = s.checkUploadDirHealth()
	health.Components["storage"] = s.checkStorageHealth()
	health.Status = determineOverallHealth(health.Components)

	return health
}

func (s *Server) checkUploadDirHealth() ComponentHealth {
	start := time.Now()

	fi, err := os.Stat(s.store.Dir())
	if err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "upload dir unavailable: " + err.Error(),
		}
	}
	if !fi.IsDir() {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "upload dir is not a directory",
		}
	}

	return ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   "upload dir reachable",
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
	}
}

// checkStorageHealth degrades past 80% and 90% usage of the backing
// filesystem.
func (s *Server) checkStorageHealth() ComponentHealth {
	usage, err := s.store.DiskUsage()
	if err != nil || usage.TotalBytes == 0 {
		msg := "disk usage unavailable"
		if err != nil {
			msg += ": " + err.Error()
		}
		return ComponentHealth{
			Status:  ComponentStatusDegraded,
			Message: msg,
		}
	}

	used := usage.TotalBytes - usage.FreeBytes
	if usage.FreeBytes > usage.TotalBytes {
		used = 0
	}
	pct := float64(used) / float64(usage.TotalBytes) * 100

	details := StorageDetails{
		AvailableBytes: usage.FreeBytes,
		UsedBytes:      used,
		TotalBytes:     usage.TotalBytes,
		PercentageUsed: pct,
	}

	status := ComponentStatusUp
	message := "storage healthy"
	if pct > 90 {
		status = ComponentStatusDegraded
		message = "storage critically low"
	} else if pct > 80 {
		status = ComponentStatusDegraded
		message = "storage running low"
	}

	return ComponentHealth{
		Status:  status,
		Message: message,
		Details: details,
	}
}

// determineOverallHealth calculates overall health from component statuses
func determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	var downCount, degradedCount int

	for _, component := range components {
		switch component.Status {
		case ComponentStatusDown:
			downCount++
		case ComponentStatusDegraded:
			degradedCount++
		}
	}

	if downCount > 0 {
		return HealthStatusUnhealthy
	}
	if degradedCount > 0 {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}
