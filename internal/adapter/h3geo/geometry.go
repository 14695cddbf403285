// Package h3geo resolves H3 cell identifiers into map geometry.
package h3geo

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// Geometry implements geo.CellGeometry on the H3 grid library.
type Geometry struct{}

func New() *Geometry {
	return &Geometry{}
}

// CellCenter returns the centroid of the cell.
func (g *Geometry) CellCenter(cellID string) (float64, float64, error) {
	cell, err := parseCell(cellID)
	if err != nil {
		return 0, 0, err
	}
	latLng, err := cell.LatLng()
	if err != nil {
		return 0, 0, fmt.Errorf("cell center %s: %w", cellID, err)
	}
	return latLng.Lat, latLng.Lng, nil
}

// CellBoundary returns the hexagon ring as [lat, lng] pairs.
func (g *Geometry) CellBoundary(cellID string) ([][2]float64, error) {
	cell, err := parseCell(cellID)
	if err != nil {
		return nil, err
	}
	boundary, err := cell.Boundary()
	if err != nil {
		return nil, fmt.Errorf("cell boundary %s: %w", cellID, err)
	}
	ring := make([][2]float64, 0, len(boundary))
	for _, vertex := range boundary {
		ring = append(ring, [2]float64{vertex.Lat, vertex.Lng})
	}
	return ring, nil
}

func parseCell(cellID string) (h3.Cell, error) {
	cell := h3.Cell(h3.IndexFromString(cellID))
	if !cell.IsValid() {
		return 0, fmt.Errorf("invalid H3 cell %q", cellID)
	}
	return cell, nil
}
