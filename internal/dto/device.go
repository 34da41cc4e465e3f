package dto

// RegisterDeviceRequest represents the request body for registering a push token
type RegisterDeviceRequest struct {
	DeviceToken string `json:"device_token" binding:"required"`
	DeviceType  string `json:"device_type"`
}

// DeviceStatusResponse reports what a device call changed
type DeviceStatusResponse struct {
	Status string `json:"status"`
}

// UnregisterAllResponse reports how many tokens were removed
type UnregisterAllResponse struct {
	Removed int64 `json:"removed"`
}
