package engine

import (
	"github.com/previewlab/restyle/internal/preview/camera"
	"github.com/previewlab/restyle/internal/preview/device"
	"github.com/previewlab/restyle/internal/preview/inject"
	"github.com/previewlab/restyle/internal/preview/session"
	"github.com/previewlab/restyle/internal/preview/surface"
)

// SurfaceInfo describes one live surface for the UI.
type SurfaceInfo struct {
	ID          string         `json:"id"`
	Role        surface.Role   `json:"role"`
	Profile     device.Profile `json:"profile"`
	Initialized bool           `json:"initialized"`
	Restricted  bool           `json:"restricted"`
}

// State is the engine snapshot the UI chrome reads back for display.
type State struct {
	URL            string         `json:"url"`
	Camera         camera.State   `json:"camera"`
	DeviceID       string         `json:"deviceId"`
	MultiDeviceIDs []string       `json:"multiDeviceIds,omitempty"`
	Comparison     session.State  `json:"comparison"`
	Layers         []inject.Layer `json:"layers"`
	MappingSize    int            `json:"mappingSize"`
	Surfaces       []SurfaceInfo  `json:"surfaces"`
}

// State builds a snapshot, refreshing the pair statuses first.
func (e *Engine) State() State {
	e.mu.Lock()
	for id, info := range e.pairs {
		e.comparison.UpdatePairStatus(id, info.sync.Status())
	}

	surfaces := e.manager.List()
	infos := make([]SurfaceInfo, 0, len(surfaces))
	for _, s := range surfaces {
		infos = append(infos, SurfaceInfo{
			ID:          s.ID,
			Role:        s.Role,
			Profile:     s.Profile,
			Initialized: s.Initialized(),
			Restricted:  s.Restricted(),
		})
	}

	st := State{
		URL:            e.url,
		Camera:         e.camera.State(),
		DeviceID:       e.deviceID,
		MultiDeviceIDs: append([]string(nil), e.multiIDs...),
		Comparison:     e.comparison.Snapshot(),
		Layers:         e.pipeline.Layers(),
		MappingSize:    e.mapping.Len(),
		Surfaces:       infos,
	}
	e.mu.Unlock()
	return st
}
