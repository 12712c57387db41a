package metrics

// Prometheus metric namespaces
const (
	namespaceWitnessnet = "witnessnet"
)

// Prometheus metric subsystems
const (
	subsystemModule    = "module"
	subsystemArchivist = "archivist"
	subsystemResolver  = "resolver"
)
