package traci

// AddRoute registers a named route consisting of the given edge ids.
func (c *Client) AddRoute(routeID string, edges []string) error {
	return c.set(cmdSetRouteVar, cmdRouteAdd, routeID, func(w *writer) {
		w.writeTypedStringList(edges)
	})
}

// RouteEdges returns the edge ids making up the named route.
func (c *Client) RouteEdges(routeID string) ([]string, error) {
	return c.getStringList(cmdGetRouteVar, varRouteEdges, routeID)
}

// SetRouteParameter sets a generic string parameter on the named route.
func (c *Client) SetRouteParameter(routeID, key, value string) error {
	return c.set(cmdSetRouteVar, varParameter, routeID, func(w *writer) {
		w.writeCompound(2)
		w.writeTypedString(key)
		w.writeTypedString(value)
	})
}
