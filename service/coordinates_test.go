package service

import (
	"testing"

	"tiktokcontrol/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomOverrideWinsRegardlessOfDeviceInfo(t *testing.T) {
	cs := NewCoordinateService(DefaultMappings())
	override := models.DeviceCoordinates{
		Like:    models.Point{X: 1, Y: 2},
		Comment: models.Point{X: 3, Y: 4},
		Save:    models.Point{X: 5, Y: 6},
	}
	cs.SetCustomCoordinates("dev-1", override)

	infos := []models.DeviceInfo{
		{Width: 1080, Height: 1920},
		{Width: 720, Height: 1280, DeviceType: "small_android"},
		{},
	}
	for _, info := range infos {
		assert.Equal(t, override, cs.GetCoordinatesForDevice("dev-1", info))
	}

	cs.ClearCustomCoordinates("dev-1")
	assert.NotEqual(t, override, cs.GetCoordinatesForDevice("dev-1", models.DeviceInfo{Width: 1080, Height: 1920}))
}

func TestDeviceTypeMatchBeatsResolution(t *testing.T) {
	cs := NewCoordinateService(DefaultMappings())
	// iphone_x entry should win even though the resolution passed matches
	// default_android exactly.
	coords := cs.GetCoordinatesForDevice("dev", models.DeviceInfo{Width: 1080, Height: 1920, DeviceType: "iphone_x"})
	assert.Equal(t, models.Point{X: 1080, Y: 585}, coords.Like)
}

func TestExactResolutionMatch(t *testing.T) {
	cs := NewCoordinateService(DefaultMappings())
	coords := cs.GetCoordinatesForDevice("dev", models.DeviceInfo{Width: 720, Height: 1280})
	assert.Equal(t, models.Point{X: 648, Y: 533}, coords.Like)
	assert.Equal(t, models.Point{X: 648, Y: 587}, coords.Comment)
	assert.Equal(t, models.Point{X: 648, Y: 693}, coords.Save)
}

func TestNearestMatchScalesLinearly(t *testing.T) {
	// Single-entry table; a target at exactly double the resolution must
	// come back exactly doubled.
	table := []models.DeviceMapping{
		{
			DeviceType:   "small_android",
			ScreenWidth:  720,
			ScreenHeight: 1280,
			Coordinates: models.DeviceCoordinates{
				Like:    models.Point{X: 648, Y: 533},
				Comment: models.Point{X: 648, Y: 587},
				Save:    models.Point{X: 648, Y: 693},
			},
		},
	}
	cs := NewCoordinateService(table)
	coords := cs.GetCoordinatesForDevice("dev", models.DeviceInfo{Width: 1440, Height: 2560})
	assert.Equal(t, models.Point{X: 1296, Y: 1066}, coords.Like)
	assert.Equal(t, models.Point{X: 1296, Y: 1174}, coords.Comment)
	assert.Equal(t, models.Point{X: 1296, Y: 1386}, coords.Save)
}

func TestNearestMatchTieGoesToFirstEntry(t *testing.T) {
	first := models.DeviceCoordinates{Like: models.Point{X: 10, Y: 10}}
	second := models.DeviceCoordinates{Like: models.Point{X: 20, Y: 20}}
	table := []models.DeviceMapping{
		{DeviceType: "a", ScreenWidth: 900, ScreenHeight: 1600, Coordinates: first},
		{DeviceType: "b", ScreenWidth: 1100, ScreenHeight: 1600, Coordinates: second},
	}
	cs := NewCoordinateService(table)
	// 1000x1600 is equidistant (100+0) from both entries.
	coords := cs.GetCoordinatesForDevice("dev", models.DeviceInfo{Width: 1000, Height: 1600})
	// Scaled from the first entry: 10 * 1000/900 = 11.11 -> 11.
	assert.Equal(t, models.Point{X: 11, Y: 10}, coords.Like)
}

func TestDefaultCoordinatesWhenTableEmpty(t *testing.T) {
	cs := NewCoordinateService(nil)
	coords := cs.GetCoordinatesForDevice("dev", models.DeviceInfo{Width: 1080, Height: 1920})
	require.Equal(t, models.Point{X: 1037, Y: 1248}, coords.Like)
	require.Equal(t, models.Point{X: 1037, Y: 1325}, coords.Comment)
	require.Equal(t, models.Point{X: 1037, Y: 1402}, coords.Save)
}

func TestZeroDeviceInfoFallsBackToReferenceResolution(t *testing.T) {
	cs := NewCoordinateService(DefaultMappings())
	coords := cs.GetCoordinatesForDevice("dev", models.DeviceInfo{})
	// 1080x1920 hits default_android exactly.
	assert.Equal(t, models.Point{X: 972, Y: 800}, coords.Like)
}

func TestModelFilters(t *testing.T) {
	cs := NewCoordinateService(DefaultMappings())

	for _, m := range cs.IPhoneModels() {
		assert.Contains(t, m.DeviceType, "iphone_")
	}
	assert.NotEmpty(t, cs.IPhoneModels())

	androids := cs.AndroidModels()
	types := make([]string, 0, len(androids))
	for _, m := range androids {
		types = append(types, m.DeviceType)
	}
	assert.Contains(t, types, "default_android")
	assert.Contains(t, types, "small_android")
	assert.Contains(t, types, "tablet")
}
