package types

type SnapshotResponse struct {
	Success      bool     `json:"success"`
	LicensePlate string   `json:"license_plate,omitempty"`
	AllPlates    []string `json:"all_plates"`
	ImageRef     string   `json:"image_ref,omitempty"`
	Timestamp    string   `json:"timestamp"`
	Error        string   `json:"error,omitempty"`
}

type StatusResponse struct {
	CameraOpen      bool     `json:"camera_open"`
	CameraIndex     int      `json:"camera_index"`
	AutoSave        bool     `json:"auto_save"`
	TransportUp     bool     `json:"transport_connected"`
	TransportBroker string   `json:"transport_broker,omitempty"`
	Readers         []Reader `json:"readers"`
	Message         string   `json:"message"`
	ServerTime      string   `json:"server_time"`
}

type AutoSaveRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
