package caldav

// Calendar represents a CalDAV calendar collection
type Calendar struct {
	Path        string
	DisplayName string
	Components  []string // supported component set, e.g. VEVENT, VTODO
}

// SupportsEvents reports whether the collection accepts VEVENTs. An empty
// component set means the server did not restrict it.
func (c Calendar) SupportsEvents() bool {
	if len(c.Components) == 0 {
		return true
	}
	for _, comp := range c.Components {
		if comp == "VEVENT" {
			return true
		}
	}
	return false
}
