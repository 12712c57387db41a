package metrics

const (
	LabelModule    = "module"
	LabelSchema    = "schema"
	LabelReason    = "reason"
	LabelArchivist = "archivist"
	LabelDirection = "direction"
)

// Query rejection reasons
const (
	ReasonNotStarted   = "not_started"
	ReasonMissingQuery = "missing_query"
	ReasonMalformed    = "malformed"
	ReasonNotQueryable = "not_queryable"
)
