package models

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DeviceCoordinates are the tap points for the three feed actions, in
// device pixel space.
type DeviceCoordinates struct {
	Like    Point `json:"like"`
	Comment Point `json:"comment"`
	Save    Point `json:"save"`
}

// DeviceMapping is one entry of the static coordinate table.
type DeviceMapping struct {
	DeviceType   string            `json:"device_type"`
	ScreenWidth  int               `json:"screen_width"`
	ScreenHeight int               `json:"screen_height"`
	Coordinates  DeviceCoordinates `json:"coordinates"`
}

// DeviceInfo is what the engine needs to know about a device to resolve
// coordinates.
type DeviceInfo struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	DeviceType string `json:"device_type,omitempty"`
}
