package traci

// Time returns the current simulation time in seconds.
func (c *Client) Time() (float64, error) {
	return c.getDouble(cmdGetSimVar, varTime, "")
}

// DeltaT returns the simulation step length in seconds. Constant for the
// lifetime of a SUMO run, so callers may cache it.
func (c *Client) DeltaT() (float64, error) {
	return c.getDouble(cmdGetSimVar, varDeltaT, "")
}
