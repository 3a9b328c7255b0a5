package service

import (
	"math"
	"strings"
	"sync"

	"tiktokcontrol/models"
)

// CoordinateService resolves the like/comment/save tap points for a
// device. Resolution order: custom override, exact device-type match,
// exact resolution match, nearest-resolution match with linear scaling,
// computed default. It never fails to produce a usable triple.
type CoordinateService struct {
	mappings []models.DeviceMapping
	custom   map[string]models.DeviceCoordinates
	mu       sync.RWMutex
}

func NewCoordinateService(mappings []models.DeviceMapping) *CoordinateService {
	return &CoordinateService{
		mappings: mappings,
		custom:   make(map[string]models.DeviceCoordinates),
	}
}

// GetCoordinatesForDevice resolves tap coordinates for a device. A custom
// override wins regardless of the deviceInfo passed.
func (s *CoordinateService) GetCoordinatesForDevice(deviceID string, info models.DeviceInfo) models.DeviceCoordinates {
	s.mu.RLock()
	if coords, ok := s.custom[deviceID]; ok {
		s.mu.RUnlock()
		return coords
	}
	s.mu.RUnlock()

	width := info.Width
	height := info.Height
	if width == 0 {
		width = 1080
	}
	if height == 0 {
		height = 1920
	}

	if info.DeviceType != "" {
		for _, m := range s.mappings {
			if m.DeviceType == info.DeviceType {
				return m.Coordinates
			}
		}
	}

	for _, m := range s.mappings {
		if m.ScreenWidth == width && m.ScreenHeight == height {
			return m.Coordinates
		}
	}

	if closest, ok := s.findClosestMapping(width, height); ok {
		return scaleCoordinates(closest.Coordinates, closest.ScreenWidth, closest.ScreenHeight, width, height)
	}

	return defaultCoordinates(width, height)
}

// findClosestMapping picks the table entry minimizing |dw|+|dh|; ties go
// to the earlier entry.
func (s *CoordinateService) findClosestMapping(width, height int) (models.DeviceMapping, bool) {
	var closest models.DeviceMapping
	found := false
	minDiff := math.MaxInt

	for _, m := range s.mappings {
		diff := abs(m.ScreenWidth-width) + abs(m.ScreenHeight-height)
		if diff < minDiff {
			minDiff = diff
			closest = m
			found = true
		}
	}
	return closest, found
}

func scaleCoordinates(coords models.DeviceCoordinates, srcW, srcH, dstW, dstH int) models.DeviceCoordinates {
	scaleX := float64(dstW) / float64(srcW)
	scaleY := float64(dstH) / float64(srcH)
	scale := func(p models.Point) models.Point {
		return models.Point{
			X: int(math.Round(float64(p.X) * scaleX)),
			Y: int(math.Round(float64(p.Y) * scaleY)),
		}
	}
	return models.DeviceCoordinates{
		Like:    scale(coords.Like),
		Comment: scale(coords.Comment),
		Save:    scale(coords.Save),
	}
}

// defaultCoordinates places the action rail on the right edge of a
// typical feed layout: 96% of width, vertically centered at 65% of
// height with 4% spacing between buttons.
func defaultCoordinates(width, height int) models.DeviceCoordinates {
	rightEdge := int(math.Round(float64(width) * 0.96))
	center := float64(height) * 0.65
	spacing := float64(height) * 0.04
	return models.DeviceCoordinates{
		Like:    models.Point{X: rightEdge, Y: int(math.Round(center))},
		Comment: models.Point{X: rightEdge, Y: int(math.Round(center + spacing))},
		Save:    models.Point{X: rightEdge, Y: int(math.Round(center + spacing*2))},
	}
}

// SetCustomCoordinates installs a per-device override. Last write wins.
// Overrides live for the service lifetime, not across restarts.
func (s *CoordinateService) SetCustomCoordinates(deviceID string, coords models.DeviceCoordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom[deviceID] = coords
}

func (s *CoordinateService) ClearCustomCoordinates(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.custom, deviceID)
}

// AvailableMappings returns a copy of the static table.
func (s *CoordinateService) AvailableMappings() []models.DeviceMapping {
	out := make([]models.DeviceMapping, len(s.mappings))
	copy(out, s.mappings)
	return out
}

// IPhoneModels returns the table entries for iPhone hardware.
func (s *CoordinateService) IPhoneModels() []models.DeviceMapping {
	var out []models.DeviceMapping
	for _, m := range s.mappings {
		if strings.HasPrefix(m.DeviceType, "iphone_") {
			out = append(out, m)
		}
	}
	return out
}

// AndroidModels returns the table entries for Android hardware.
func (s *CoordinateService) AndroidModels() []models.DeviceMapping {
	var out []models.DeviceMapping
	for _, m := range s.mappings {
		if strings.Contains(m.DeviceType, "android") || m.DeviceType == "tablet" {
			out = append(out, m)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func coords(likeX, likeY, commentX, commentY, saveX, saveY int) models.DeviceCoordinates {
	return models.DeviceCoordinates{
		Like:    models.Point{X: likeX, Y: likeY},
		Comment: models.Point{X: commentX, Y: commentY},
		Save:    models.Point{X: saveX, Y: saveY},
	}
}

// DefaultMappings is the built-in coordinate table, tuned per device
// model against the TikTok feed layout.
func DefaultMappings() []models.DeviceMapping {
	return []models.DeviceMapping{
		{DeviceType: "default_android", ScreenWidth: 1080, ScreenHeight: 1920, Coordinates: coords(972, 800, 972, 880, 972, 1040)},
		{DeviceType: "small_android", ScreenWidth: 720, ScreenHeight: 1280, Coordinates: coords(648, 533, 648, 587, 648, 693)},
		{DeviceType: "iphone_se_1st_gen", ScreenWidth: 640, ScreenHeight: 1136, Coordinates: coords(610, 280, 610, 350, 610, 420)},
		{DeviceType: "iphone_se_2nd_gen", ScreenWidth: 750, ScreenHeight: 1334, Coordinates: coords(720, 329, 720, 409, 720, 489)},
		{DeviceType: "iphone_se_3rd_gen", ScreenWidth: 750, ScreenHeight: 1334, Coordinates: coords(720, 329, 720, 409, 720, 489)},
		{DeviceType: "iphone_8", ScreenWidth: 750, ScreenHeight: 1334, Coordinates: coords(720, 329, 720, 409, 720, 489)},
		{DeviceType: "iphone_8_plus", ScreenWidth: 1080, ScreenHeight: 1920, Coordinates: coords(1020, 470, 1020, 570, 1020, 670)},
		{DeviceType: "iphone_x", ScreenWidth: 1125, ScreenHeight: 2436, Coordinates: coords(1080, 585, 1080, 705, 1080, 825)},
		{DeviceType: "iphone_xs", ScreenWidth: 1125, ScreenHeight: 2436, Coordinates: coords(1080, 585, 1080, 705, 1080, 825)},
		{DeviceType: "iphone_xs_max", ScreenWidth: 1242, ScreenHeight: 2688, Coordinates: coords(1190, 645, 1190, 775, 1190, 905)},
		{DeviceType: "iphone_xr", ScreenWidth: 828, ScreenHeight: 1792, Coordinates: coords(795, 430, 795, 520, 795, 610)},
		{DeviceType: "iphone_11", ScreenWidth: 828, ScreenHeight: 1792, Coordinates: coords(795, 430, 795, 520, 795, 610)},
		{DeviceType: "iphone_11_pro", ScreenWidth: 1125, ScreenHeight: 2436, Coordinates: coords(1080, 585, 1080, 705, 1080, 825)},
		{DeviceType: "iphone_11_pro_max", ScreenWidth: 1242, ScreenHeight: 2688, Coordinates: coords(1190, 645, 1190, 775, 1190, 905)},
		{DeviceType: "iphone_12_mini", ScreenWidth: 1080, ScreenHeight: 2340, Coordinates: coords(1035, 562, 1035, 677, 1035, 792)},
		{DeviceType: "iphone_12", ScreenWidth: 1170, ScreenHeight: 2532, Coordinates: coords(1120, 608, 1120, 733, 1120, 858)},
		{DeviceType: "iphone_12_pro", ScreenWidth: 1170, ScreenHeight: 2532, Coordinates: coords(1120, 608, 1120, 733, 1120, 858)},
		{DeviceType: "iphone_12_pro_max", ScreenWidth: 1284, ScreenHeight: 2778, Coordinates: coords(1230, 667, 1230, 802, 1230, 937)},
		{DeviceType: "iphone_13_mini", ScreenWidth: 1080, ScreenHeight: 2340, Coordinates: coords(1035, 562, 1035, 677, 1035, 792)},
		{DeviceType: "iphone_13", ScreenWidth: 1170, ScreenHeight: 2532, Coordinates: coords(1120, 608, 1120, 733, 1120, 858)},
		{DeviceType: "iphone_13_pro", ScreenWidth: 1170, ScreenHeight: 2532, Coordinates: coords(1120, 608, 1120, 733, 1120, 858)},
		{DeviceType: "iphone_13_pro_max", ScreenWidth: 1284, ScreenHeight: 2778, Coordinates: coords(1230, 667, 1230, 802, 1230, 937)},
		{DeviceType: "iphone_14", ScreenWidth: 1170, ScreenHeight: 2532, Coordinates: coords(1120, 608, 1120, 733, 1120, 858)},
		{DeviceType: "iphone_14_plus", ScreenWidth: 1284, ScreenHeight: 2778, Coordinates: coords(1230, 667, 1230, 802, 1230, 937)},
		{DeviceType: "iphone_14_pro", ScreenWidth: 1179, ScreenHeight: 2556, Coordinates: coords(1130, 613, 1130, 738, 1130, 863)},
		{DeviceType: "iphone_14_pro_max", ScreenWidth: 1290, ScreenHeight: 2796, Coordinates: coords(1235, 670, 1235, 805, 1235, 940)},
		{DeviceType: "iphone_15", ScreenWidth: 1179, ScreenHeight: 2556, Coordinates: coords(1130, 613, 1130, 738, 1130, 863)},
		{DeviceType: "iphone_15_plus", ScreenWidth: 1290, ScreenHeight: 2796, Coordinates: coords(1235, 670, 1235, 805, 1235, 940)},
		{DeviceType: "iphone_15_pro", ScreenWidth: 1179, ScreenHeight: 2556, Coordinates: coords(1130, 613, 1130, 738, 1130, 863)},
		{DeviceType: "iphone_15_pro_max", ScreenWidth: 1290, ScreenHeight: 2796, Coordinates: coords(1235, 670, 1235, 805, 1235, 940)},
		{DeviceType: "tablet", ScreenWidth: 1200, ScreenHeight: 1920, Coordinates: coords(1080, 900, 1080, 990, 1080, 1170)},
	}
}
