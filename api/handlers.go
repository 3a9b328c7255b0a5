package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tiktokcontrol/config"
	"tiktokcontrol/farm"
	"tiktokcontrol/models"
	"tiktokcontrol/service"

	"github.com/gin-gonic/gin"
)

// Settings-store key prefixes. Everything is keyed by device ID.
const (
	keyAutomationConfig = "automation_config:"
	keyCustomCoords     = "custom_coords:"
)

// GetDevices proxies the farm device list.
func GetDevices(c *gin.Context, fc *farm.Client) {
	devices, err := fc.GetDeviceList(c.Request.Context())
	if err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(devices))
}

// SetDevice proxies a device create/update.
func SetDevice(c *gin.Context, fc *farm.Client) {
	var device map[string]interface{}
	if err := c.ShouldBindJSON(&device); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	if err := fc.SetDevice(c.Request.Context(), device); err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("device saved"))
}

func DeleteDevice(c *gin.Context, fc *farm.Client) {
	if err := fc.DeleteDevice(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("device deleted"))
}

func GetGroups(c *gin.Context, fc *farm.Client) {
	groups, err := fc.GetGroupList(c.Request.Context())
	if err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(groups))
}

func SetGroup(c *gin.Context, fc *farm.Client) {
	var group map[string]interface{}
	if err := c.ShouldBindJSON(&group); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	if err := fc.SetGroup(c.Request.Context(), group); err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("group saved"))
}

func DeleteGroup(c *gin.Context, fc *farm.Client) {
	if err := fc.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("group deleted"))
}

// GetScreenshot captures the device screen and returns raw JPEG bytes.
func GetScreenshot(c *gin.Context, fc *farm.Client) {
	imgB64, err := fc.GetDeviceScreenshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	jpeg, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse("invalid screenshot encoding: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}

// InputRequest is a manual device-input passthrough (operator mouse and
// keyboard control).
type InputRequest struct {
	Type      string  `json:"type"` // click, move, swipe, wheel, reset, text, key_down, key_up, release_all
	X         int     `json:"x,omitempty"`
	Y         int     `json:"y,omitempty"`
	Button    string  `json:"button,omitempty"`
	HoldMs    int     `json:"hold_ms,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Length    float64 `json:"length,omitempty"`
	Duration  int     `json:"duration,omitempty"`
	Number    int     `json:"number,omitempty"`
	Text      string  `json:"text,omitempty"`
	Key       string  `json:"key,omitempty"`
	FnKey     string  `json:"fn_key,omitempty"`
}

// DeviceInput dispatches one manual input event to the farm.
func DeviceInput(c *gin.Context, fc *farm.Client) {
	deviceID := c.Param("id")
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}

	ctx := c.Request.Context()
	var err error
	switch req.Type {
	case "click":
		button := req.Button
		if button == "" {
			button = "left"
		}
		err = fc.ClickButton(ctx, deviceID, button, req.X, req.Y, req.HoldMs)
	case "move":
		err = fc.MouseMove(ctx, deviceID, req.X, req.Y)
	case "swipe":
		err = fc.MouseSwipe(ctx, deviceID, farm.Swipe{
			Direction: req.Direction,
			Length:    req.Length,
			Duration:  req.Duration,
		})
	case "wheel":
		err = fc.MouseWheel(ctx, deviceID, req.Direction, int(req.Length), req.Number)
	case "reset":
		err = fc.MouseResetPos(ctx, deviceID)
	case "text":
		err = fc.SendText(ctx, deviceID, req.Text)
	case "key":
		err = fc.SendKey(ctx, deviceID, req.Key, req.FnKey)
	case "key_down":
		err = fc.KeyDown(ctx, deviceID, req.Key)
	case "key_up":
		err = fc.KeyUp(ctx, deviceID, req.Key)
	case "release_all":
		err = fc.KeyReleaseAll(ctx, deviceID)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse("unknown input type: "+req.Type))
		return
	}

	if err != nil {
		c.JSON(farmErrorStatus(err), models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("input dispatched"))
}

// GetMappings lists the static coordinate table, optionally filtered.
func GetMappings(c *gin.Context, cs *service.CoordinateService) {
	var mappings []models.DeviceMapping
	switch c.Query("filter") {
	case "iphone":
		mappings = cs.IPhoneModels()
	case "android":
		mappings = cs.AndroidModels()
	default:
		mappings = cs.AvailableMappings()
	}
	c.JSON(http.StatusOK, models.SuccessResponse(mappings))
}

// GetCoordinates resolves the tap points for a device. Width/height/
// device_type come from query parameters so operators can preview the
// resolution logic.
func GetCoordinates(c *gin.Context, cs *service.CoordinateService) {
	width, _ := strconv.Atoi(c.Query("width"))
	height, _ := strconv.Atoi(c.Query("height"))
	info := models.DeviceInfo{
		Width:      width,
		Height:     height,
		DeviceType: c.Query("device_type"),
	}
	coords := cs.GetCoordinatesForDevice(c.Param("deviceId"), info)
	c.JSON(http.StatusOK, models.SuccessResponse(coords))
}

// SetCustomCoordinates installs a per-device override and mirrors it
// into the settings store.
func SetCustomCoordinates(c *gin.Context, cs *service.CoordinateService, store *config.Store) {
	deviceID := c.Param("deviceId")
	var coords models.DeviceCoordinates
	if err := c.ShouldBindJSON(&coords); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	cs.SetCustomCoordinates(deviceID, coords)
	if store != nil {
		if blob, err := json.Marshal(coords); err == nil {
			store.Set(keyCustomCoords+deviceID, string(blob))
		}
	}
	c.JSON(http.StatusOK, models.SuccessResponse(coords))
}

func ClearCustomCoordinates(c *gin.Context, cs *service.CoordinateService, store *config.Store) {
	deviceID := c.Param("deviceId")
	cs.ClearCustomCoordinates(deviceID)
	if store != nil {
		store.Delete(keyCustomCoords + deviceID)
	}
	c.JSON(http.StatusOK, models.MessageResponse("custom coordinates cleared"))
}

// StartAutomation starts a session and persists the config blob.
func StartAutomation(c *gin.Context, engine *service.AutomationEngine, store *config.Store) {
	deviceID := c.Param("deviceId")
	var cfg models.AutomationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}

	if err := engine.StartAutomation(deviceID, cfg); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrSessionExists) {
			status = http.StatusConflict
		}
		c.JSON(status, models.ErrorResponse(err.Error()))
		return
	}

	if store != nil {
		if blob, err := json.Marshal(cfg); err == nil {
			store.Set(keyAutomationConfig+deviceID, string(blob))
		}
	}
	c.JSON(http.StatusOK, models.MessageResponse("automation started"))
}

func StopAutomation(c *gin.Context, engine *service.AutomationEngine) {
	engine.StopAutomation(c.Param("deviceId"))
	c.JSON(http.StatusOK, models.MessageResponse("automation stopped"))
}

func ListSessions(c *gin.Context, engine *service.AutomationEngine) {
	c.JSON(http.StatusOK, models.SuccessResponse(engine.ListSessions()))
}

func GetSession(c *gin.Context, engine *service.AutomationEngine) {
	snapshot, err := engine.GetSession(c.Param("deviceId"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(snapshot))
}

func GetDeviceLogs(c *gin.Context, logs *service.LogHub) {
	c.JSON(http.StatusOK, models.SuccessResponse(logs.DeviceLogs(c.Param("deviceId"))))
}

func ClearDeviceLogs(c *gin.Context, logs *service.LogHub) {
	logs.ClearDeviceLogs(c.Param("deviceId"))
	c.JSON(http.StatusOK, models.MessageResponse("logs cleared"))
}

func GetSetting(c *gin.Context, store *config.Store) {
	value, err := store.Get(c.Param("key"))
	if err != nil {
		if errors.Is(err, config.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"key": c.Param("key"), "value": value}))
}

func PutSetting(c *gin.Context, store *config.Store) {
	var body struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	if err := store.Set(c.Param("key"), body.Value); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("setting saved"))
}

// farmErrorStatus maps gateway failures onto HTTP: the farm answered
// but refused (application error) is 502; the farm was unreachable
// (transport error) is 503.
func farmErrorStatus(err error) int {
	var apiErr *farm.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusServiceUnavailable
}
