package farm

import "encoding/json"

// Opcodes of the farm control protocol. Every call is a POST of
// {fun, msgid, data} to the same endpoint.
const (
	FunGetDeviceList       = "get_device_list"
	FunSetDevice           = "set_dev"
	FunDeleteDevice        = "del_dev"
	FunGetGroupList        = "get_group_list"
	FunSetGroup            = "set_group"
	FunDeleteGroup         = "del_group"
	FunGetDeviceScreenshot = "get_device_screenshot"
	FunClick               = "click"
	FunSwipe               = "swipe"
	FunMouseMove           = "mouse_move"
	FunMouseWheel          = "mouse_wheel"
	FunMouseResetPos       = "mouse_reset_pos"
	FunSendKey             = "send_key"
	FunKeyDown             = "key_down"
	FunKeyUp               = "key_up"
	FunKeyReleaseAll       = "key_release_all"
)

type request struct {
	Fun   string      `json:"fun"`
	MsgID int         `json:"msgid"`
	Data  interface{} `json:"data"`
}

type response struct {
	Fun     string          `json:"fun"`
	MsgID   int             `json:"msgid"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Per-opcode payloads. The wire format is the farm's; only the Go side
// is typed.

type deviceIDPayload struct {
	DeviceID string `json:"deviceid"`
}

type screenshotPayload struct {
	DeviceID string `json:"deviceid"`
	Gzip     bool   `json:"gzip"`
	Binary   bool   `json:"binary"`
	IsJPG    bool   `json:"isjpg"`
	Original bool   `json:"original"`
}

type screenshotData struct {
	Img string `json:"img"`
}

type clickPayload struct {
	DeviceID string `json:"deviceid"`
	Button   string `json:"button"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Time     int    `json:"time"`
}

type movePayload struct {
	DeviceID string `json:"deviceid"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

type wheelPayload struct {
	DeviceID  string `json:"deviceid"`
	Direction string `json:"direction"`
	Length    int    `json:"length"`
	Number    int    `json:"number"`
}

type sendKeyPayload struct {
	DeviceID string `json:"deviceid"`
	Key      string `json:"key"`
	FnKey    string `json:"fn_key"`
}

type keyPayload struct {
	DeviceID string `json:"deviceid"`
	Key      string `json:"key"`
}

type groupIDPayload struct {
	GID string `json:"gid"`
}

// Swipe supports the farm's two shapes: direction-based (Direction +
// relative Length) or coordinate-based (Start*/End*). Zero-valued fields
// are omitted so either shape goes out clean.
type Swipe struct {
	Direction string  `json:"direction,omitempty"`
	Length    float64 `json:"length,omitempty"` // fraction of screen
	StartX    int     `json:"startX,omitempty"`
	StartY    int     `json:"startY,omitempty"`
	EndX      int     `json:"endX,omitempty"`
	EndY      int     `json:"endY,omitempty"`
	Duration  int     `json:"duration,omitempty"` // ms
}

type swipePayload struct {
	DeviceID string `json:"deviceid"`
	Swipe
}

// Device is one entry of the farm's device list, keyed by device ID in
// the response.
type Device struct {
	Name   string `json:"name,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	GID    string `json:"gid,omitempty"`
	Online int    `json:"online,omitempty"`
}

// Group is one entry of the farm's group list.
type Group struct {
	GID  string `json:"gid"`
	Name string `json:"name,omitempty"`
}
