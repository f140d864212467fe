package traci

// LaneIDs returns the ids of all lanes in the network.
func (c *Client) LaneIDs() ([]string, error) {
	return c.getStringList(cmdGetLaneVar, varIDList, "")
}

// LaneLength returns the length of the named lane in meters.
func (c *Client) LaneLength(laneID string) (float64, error) {
	return c.getDouble(cmdGetLaneVar, varLength, laneID)
}

// LaneMaxSpeed returns the speed limit of the named lane in m/s.
func (c *Client) LaneMaxSpeed(laneID string) (float64, error) {
	return c.getDouble(cmdGetLaneVar, varMaxSpeed, laneID)
}

// LaneEdgeID returns the id of the edge the named lane belongs to.
func (c *Client) LaneEdgeID(laneID string) (string, error) {
	return c.getString(cmdGetLaneVar, laneVarEdgeID, laneID)
}

// LaneAllowed returns the vehicle classes allowed on the named lane. An
// empty list means all classes are allowed.
func (c *Client) LaneAllowed(laneID string) ([]string, error) {
	return c.getStringList(cmdGetLaneVar, laneVarAllowed, laneID)
}

// LaneShape returns the polyline describing the named lane's geometry.
func (c *Client) LaneShape(laneID string) ([]Position, error) {
	r, err := c.getResponse(cmdGetLaneVar, varShape, laneID)
	if err != nil {
		return nil, err
	}
	r.expectType(typePolygon)
	n := int(r.readByte())
	shape := make([]Position, 0, n)
	for i := 0; i < n; i++ {
		shape = append(shape, Position{X: r.readDouble(), Y: r.readDouble()})
	}
	return shape, r.err()
}
