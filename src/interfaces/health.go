package interfaces

// -----------------------------------------------------------------------------

// IHealthReporter receives connection health changes. An empty endpoint name
// refers to the monitor as a whole.
type IHealthReporter interface {
	SetServingStatus(endpoint string, serving bool)
}
