package traci

// VehicleParams carries the optional parameters of AddVehicle. Zero-valued
// fields fall back to the SUMO defaults.
type VehicleParams struct {
	TypeID       string // vehicle type (default "DEFAULT_VEHTYPE")
	Depart       string // departure time (default "now")
	DepartLane   string // default "first"
	DepartPos    string // default "base"
	DepartSpeed  string // default "0"
	ArrivalLane  string // default "current"
	ArrivalPos   string // default "max"
	ArrivalSpeed string // default "current"
}

func (p VehicleParams) withDefaults() VehicleParams {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&p.TypeID, "DEFAULT_VEHTYPE")
	def(&p.Depart, "now")
	def(&p.DepartLane, "first")
	def(&p.DepartPos, "base")
	def(&p.DepartSpeed, "0")
	def(&p.ArrivalLane, "current")
	def(&p.ArrivalPos, "max")
	def(&p.ArrivalSpeed, "current")
	return p
}

// VehicleIDs returns the ids of all vehicles currently in the network.
func (c *Client) VehicleIDs() ([]string, error) {
	return c.getStringList(cmdGetVehicleVar, varIDList, "")
}

// VehiclePosition returns the position of the named vehicle.
func (c *Client) VehiclePosition(vehID string) (Position, error) {
	return c.getPosition(cmdGetVehicleVar, varPosition, vehID)
}

// VehicleSpeed returns the speed of the named vehicle in m/s.
func (c *Client) VehicleSpeed(vehID string) (float64, error) {
	return c.getDouble(cmdGetVehicleVar, varSpeed, vehID)
}

// VehicleLanePosition returns the distance the vehicle has travelled along
// its current lane, in meters.
func (c *Client) VehicleLanePosition(vehID string) (float64, error) {
	return c.getDouble(cmdGetVehicleVar, varLanePosition, vehID)
}

// VehicleRouteID returns the id of the route the vehicle is following.
func (c *Client) VehicleRouteID(vehID string) (string, error) {
	return c.getString(cmdGetVehicleVar, varRouteID, vehID)
}

// VehicleSignals returns the vehicle's signal state bit mask.
func (c *Client) VehicleSignals(vehID string) (int, error) {
	v, err := c.getInt(cmdGetVehicleVar, varSignals, vehID)
	return int(v), err
}

// AddVehicle inserts a new vehicle on the given route ("addFull").
func (c *Client) AddVehicle(vehID, routeID string, params VehicleParams) error {
	p := params.withDefaults()
	return c.set(cmdSetVehicleVar, cmdVehicleAdd, vehID, func(w *writer) {
		w.writeCompound(14)
		w.writeTypedString(routeID)
		w.writeTypedString(p.TypeID)
		w.writeTypedString(p.Depart)
		w.writeTypedString(p.DepartLane)
		w.writeTypedString(p.DepartPos)
		w.writeTypedString(p.DepartSpeed)
		w.writeTypedString(p.ArrivalLane)
		w.writeTypedString(p.ArrivalPos)
		w.writeTypedString(p.ArrivalSpeed)
		w.writeTypedString("") // fromTaz
		w.writeTypedString("") // toTaz
		w.writeTypedString("") // line
		w.writeTypedInt(0)     // personCapacity
		w.writeTypedInt(0)     // personNumber
	})
}

// RemoveVehicle removes the vehicle from the simulation with the given
// removal reason (one of the Remove* constants).
func (c *Client) RemoveVehicle(vehID string, reason byte) error {
	return c.set(cmdSetVehicleVar, cmdVehicleRemove, vehID, func(w *writer) {
		w.writeTypedByte(reason)
	})
}

// SetVehicleSpeed overrides the vehicle's speed. Negative values return
// control to the car-following model.
func (c *Client) SetVehicleSpeed(vehID string, speed float64) error {
	return c.set(cmdSetVehicleVar, varSpeed, vehID, func(w *writer) {
		w.writeTypedDouble(speed)
	})
}

// SlowDownVehicle smoothly decelerates/accelerates the vehicle to the given
// speed over duration seconds. A zero duration applies the speed at once.
func (c *Client) SlowDownVehicle(vehID string, speed, duration float64) error {
	return c.set(cmdSetVehicleVar, cmdSlowDown, vehID, func(w *writer) {
		w.writeCompound(2)
		w.writeTypedDouble(speed)
		w.writeTypedDouble(duration)
	})
}

// SetVehicleSignals overrides the vehicle's signal bit mask. Passing -1
// returns signal control to the simulation.
func (c *Client) SetVehicleSignals(vehID string, signals int) error {
	return c.set(cmdSetVehicleVar, varSignals, vehID, func(w *writer) {
		w.writeTypedInt(int32(signals))
	})
}
