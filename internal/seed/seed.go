// Package seed provides the initial candidate list loaded at process start.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// Entry is one seed location as stored in a JSON seed file.
type Entry struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Default is the built-in list of points of interest.
var Default = []Entry{
	{Name: "Kinkaku-ji", Lat: 35.0221, Lon: 135.4345},
	{Name: "Ginkaku-ji", Lat: 35.0137, Lon: 135.4753},
	{Name: "Kiyomizu-dera", Lat: 34.5940, Lon: 135.4704},
	{Name: "Ryoan-ji", Lat: 35.0204, Lon: 135.4305},
	{Name: "Fushimi Inari Taisha", Lat: 34.5803, Lon: 135.4645},
	{Name: "Yasaka Shrine", Lat: 35.0010, Lon: 135.4642},
	{Name: "Nijo Castle", Lat: 35.0050, Lon: 135.4454},
	{Name: "To-ji", Lat: 34.5850, Lon: 135.4452},
	{Name: "Arashiyama", Lat: 35.0034, Lon: 135.4000},
	{Name: "Kunshujukan", Lat: 35.0050, Lon: 135.4535},
	{Name: "Nanzen-ji", Lat: 35.0041, Lon: 135.7833},
	{Name: "Malebranche Kyoto Tower Sando", Lat: 34.5914, Lon: 135.4533},
	{Name: "Philosopher's Path", Lat: 35.0117, Lon: 135.4739},
	{Name: "Kyoto Aquarium", Lat: 34.5915, Lon: 135.4449},
	{Name: "Nishiki Market", Lat: 35.0018, Lon: 135.4553},
	{Name: "Myoshin-ji", Lat: 35.0122, Lon: 135.4311},
	{Name: "Kennin-ji", Lat: 35.00, Lon: 135.4624},
	{Name: "Daisen-ji", Lat: 35.0139, Lon: 135.4157},
	{Name: "Shoden-ji", Lat: 35.0344, Lon: 135.4412},
	{Name: "Mikane Shrine", Lat: 35.0042, Lon: 135.4517},
	{Name: "Hanamikoji Street", Lat: 35.0019, Lon: 135.4630},
	{Name: "Mibu-dera", Lat: 35.0006, Lon: 135.4436},
	{Name: "Ikedaya Incident Site", Lat: 35.0032, Lon: 135.4611},
	{Name: "Kamigamo Shrine", Lat: 35.0329, Lon: 135.4528},
	{Name: "Shimogamo Shrine", Lat: 35.0220, Lon: 135.4622},
	{Name: "Pokemon Center Kyoto", Lat: 35.0036, Lon: 135.7583},
	{Name: "University of Tsukuba Kasuga Area", Lat: 36.0510, Lon: 140.0623},
	{Name: "University of Tsukuba Third Area", Lat: 36.0532, Lon: 140.0607},
}

// Points converts seed entries into fresh candidate points, validating each one.
func Points(entries []Entry) ([]domain.Point, error) {
	points := make([]domain.Point, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("seed: entry %d: name cannot be empty", i+1)
		}
		loc := domain.GeoPoint{Lat: e.Lat, Lon: e.Lon}
		if !loc.Valid() {
			return nil, fmt.Errorf("seed: entry %d (%s): coordinate out of range", i+1, name)
		}
		points = append(points, domain.NewPoint(name, e.Lat, e.Lon))
	}
	return points, nil
}

// Load returns the seed points from path, or the built-in list when path is empty.
func Load(path string) ([]domain.Point, error) {
	if strings.TrimSpace(path) == "" {
		return Points(Default)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %q: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("seed: parse %q: %w", path, err)
	}
	return Points(entries)
}
