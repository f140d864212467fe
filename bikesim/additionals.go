package bikesim

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/paulmach/orb"
)

// Default type attribute values matched when loading additionals files.
const (
	DefaultTriggerType = "trigger"
	DefaultTargetType  = "target"
)

// additionalsFile mirrors the parts of a SUMO additionals XML document the
// toolkit reads: polygons (triggers) and POIs (conflict target points).
type additionalsFile struct {
	XMLName xml.Name      `xml:"additional"`
	Polys   []polyElement `xml:"poly"`
	POIs    []poiElement  `xml:"poi"`
}

type polyElement struct {
	ID    string `xml:"id,attr"`
	Type  string `xml:"type,attr"`
	Shape string `xml:"shape,attr"`
}

type poiElement struct {
	ID   string  `xml:"id,attr"`
	Type string  `xml:"type,attr"`
	X    float64 `xml:"x,attr"`
	Y    float64 `xml:"y,attr"`
}

func parseAdditionals(path string) (*additionalsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read additionals file: %w", err)
	}
	var doc additionalsFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse additionals file %s: %w", path, err)
	}
	return &doc, nil
}

// ReadTriggersFromFile reads polygons from a SUMO additionals file and
// builds a Trigger for each <poly> whose type attribute matches typeValue.
func ReadTriggersFromFile(path, typeValue string) ([]*Trigger, error) {
	if typeValue == "" {
		typeValue = DefaultTriggerType
	}
	doc, err := parseAdditionals(path)
	if err != nil {
		return nil, err
	}
	var triggers []*Trigger
	for _, poly := range doc.Polys {
		if poly.Type != typeValue {
			continue
		}
		t, err := NewTriggerFromShape(poly.ID, poly.Shape)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, nil
}

// ReadTargetPointsFromFile reads POIs from a SUMO additionals file and
// returns the coordinates of each <poi> whose type attribute matches
// typeValue, keyed by id.
func ReadTargetPointsFromFile(path, typeValue string) (map[string]orb.Point, error) {
	if typeValue == "" {
		typeValue = DefaultTargetType
	}
	doc, err := parseAdditionals(path)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]orb.Point)
	for _, poi := range doc.POIs {
		if poi.Type != typeValue {
			continue
		}
		targets[poi.ID] = orb.Point{poi.X, poi.Y}
	}
	return targets, nil
}
