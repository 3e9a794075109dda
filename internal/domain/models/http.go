package models

// TopOptionsRequest filters the top-volume listing.
type TopOptionsRequest struct {
	Limit int `query:"limit" default:"10" validate:"gte=1,lte=100"`
}

// HistoryRequest bounds how many past snapshots are returned.
type HistoryRequest struct {
	Count int `query:"n" default:"10" validate:"gte=1,lte=120"`
}

// ErrorsRequest bounds how many captured log entries are returned.
type ErrorsRequest struct {
	Count int `query:"n" default:"50" validate:"gte=1,lte=500"`
}

// ExportRequest names the file the snapshot is written to. An empty path
// derives a timestamped filename in the working directory.
type ExportRequest struct {
	Path string `json:"path" validate:"omitempty,max=4096"`
}

// ExportResponse reports where the snapshot landed.
type ExportResponse struct {
	Path string `json:"path"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status       string `json:"status"`
	MonitorState string `json:"monitor_state"`
	HasSnapshot  bool   `json:"has_snapshot"`
}
