package farm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError is an application-level failure reported by the farm
// (status != 0 on a 2xx response). Transport failures are returned as
// ordinary wrapped errors, so callers can tell the two apart.
type APIError struct {
	Fun     string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("farm %s failed: status=%d message=%q", e.Fun, e.Status, e.Message)
}

// Client talks to the device farm's single-endpoint control API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a farm client. timeout bounds every call; a hung
// farm request errors out instead of stalling the caller.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// call sends one {fun, msgid, data} request and returns the raw data
// payload. Retry policy belongs to callers, not here.
func (c *Client) call(ctx context.Context, fun string, payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(request{Fun: fun, MsgID: 0, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", fun, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", fun, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("farm %s request: %w", fun, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", fun, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("farm %s: HTTP %d", fun, resp.StatusCode)
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", fun, err)
	}
	if parsed.Status != 0 {
		return nil, &APIError{Fun: fun, Status: parsed.Status, Message: parsed.Message}
	}
	return parsed.Data, nil
}

// GetDeviceList returns all devices known to the farm, keyed by device ID.
func (c *Client) GetDeviceList(ctx context.Context) (map[string]Device, error) {
	data, err := c.call(ctx, FunGetDeviceList, nil)
	if err != nil {
		return nil, err
	}
	devices := make(map[string]Device)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &devices); err != nil {
			return nil, fmt.Errorf("parse device list: %w", err)
		}
	}
	return devices, nil
}

// SetDevice creates or updates a device record.
func (c *Client) SetDevice(ctx context.Context, device map[string]interface{}) error {
	_, err := c.call(ctx, FunSetDevice, device)
	return err
}

func (c *Client) DeleteDevice(ctx context.Context, deviceID string) error {
	_, err := c.call(ctx, FunDeleteDevice, deviceIDPayload{DeviceID: deviceID})
	return err
}

func (c *Client) GetGroupList(ctx context.Context) (map[string]Group, error) {
	data, err := c.call(ctx, FunGetGroupList, nil)
	if err != nil {
		return nil, err
	}
	groups := make(map[string]Group)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, fmt.Errorf("parse group list: %w", err)
		}
	}
	return groups, nil
}

func (c *Client) SetGroup(ctx context.Context, group map[string]interface{}) error {
	_, err := c.call(ctx, FunSetGroup, group)
	return err
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := c.call(ctx, FunDeleteGroup, groupIDPayload{GID: groupID})
	return err
}

// GetDeviceScreenshot captures the device screen and returns the JPEG
// as base64, exactly as the farm delivers it in data.img.
func (c *Client) GetDeviceScreenshot(ctx context.Context, deviceID string) (string, error) {
	data, err := c.call(ctx, FunGetDeviceScreenshot, screenshotPayload{
		DeviceID: deviceID,
		Gzip:     false,
		Binary:   false,
		IsJPG:    true,
		Original: false,
	})
	if err != nil {
		return "", err
	}
	var shot screenshotData
	if err := json.Unmarshal(data, &shot); err != nil {
		return "", fmt.Errorf("parse screenshot response: %w", err)
	}
	if shot.Img == "" {
		return "", fmt.Errorf("screenshot response has no image data")
	}
	return shot.Img, nil
}

// Click performs a single left click at (x, y).
func (c *Client) Click(ctx context.Context, deviceID string, x, y int) error {
	return c.ClickButton(ctx, deviceID, "left", x, y, 0)
}

// ClickButton clicks with an explicit button and hold time in ms.
func (c *Client) ClickButton(ctx context.Context, deviceID, button string, x, y, holdMs int) error {
	_, err := c.call(ctx, FunClick, clickPayload{
		DeviceID: deviceID,
		Button:   button,
		X:        x,
		Y:        y,
		Time:     holdMs,
	})
	return err
}

func (c *Client) MouseMove(ctx context.Context, deviceID string, x, y int) error {
	_, err := c.call(ctx, FunMouseMove, movePayload{DeviceID: deviceID, X: x, Y: y})
	return err
}

func (c *Client) MouseSwipe(ctx context.Context, deviceID string, swipe Swipe) error {
	_, err := c.call(ctx, FunSwipe, swipePayload{DeviceID: deviceID, Swipe: swipe})
	return err
}

func (c *Client) MouseWheel(ctx context.Context, deviceID, direction string, length, number int) error {
	_, err := c.call(ctx, FunMouseWheel, wheelPayload{
		DeviceID:  deviceID,
		Direction: direction,
		Length:    length,
		Number:    number,
	})
	return err
}

func (c *Client) MouseResetPos(ctx context.Context, deviceID string) error {
	_, err := c.call(ctx, FunMouseResetPos, deviceIDPayload{DeviceID: deviceID})
	return err
}

// SendText types literal text through the farm keyboard.
func (c *Client) SendText(ctx context.Context, deviceID, text string) error {
	return c.SendKey(ctx, deviceID, text, "")
}

// SendKey sends a key (or text) with an optional function-key modifier.
func (c *Client) SendKey(ctx context.Context, deviceID, key, fnKey string) error {
	_, err := c.call(ctx, FunSendKey, sendKeyPayload{DeviceID: deviceID, Key: key, FnKey: fnKey})
	return err
}

func (c *Client) KeyDown(ctx context.Context, deviceID, key string) error {
	_, err := c.call(ctx, FunKeyDown, keyPayload{DeviceID: deviceID, Key: key})
	return err
}

func (c *Client) KeyUp(ctx context.Context, deviceID, key string) error {
	_, err := c.call(ctx, FunKeyUp, keyPayload{DeviceID: deviceID, Key: key})
	return err
}

func (c *Client) KeyReleaseAll(ctx context.Context, deviceID string) error {
	_, err := c.call(ctx, FunKeyReleaseAll, deviceIDPayload{DeviceID: deviceID})
	return err
}
