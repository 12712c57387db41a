package archivist

import (
	"github.com/witnessnet/witnessnet/model/hash"
)

const (
	ConfigSchema = "network.xyo.archivist.config"

	AllQuerySchema    = "network.xyo.query.archivist.all"
	ClearQuerySchema  = "network.xyo.query.archivist.clear"
	CommitQuerySchema = "network.xyo.query.archivist.commit"
	DeleteQuerySchema = "network.xyo.query.archivist.delete"
	GetQuerySchema    = "network.xyo.query.archivist.get"
	InsertQuerySchema = "network.xyo.query.archivist.insert"

	// DeleteResultSchema reports, per requested hash, whether a payload was removed.
	DeleteResultSchema = "network.xyo.archivist.delete.result"
)

// Queries lists the query schemas every archivist handles.
var Queries = []string{
	AllQuerySchema,
	ClearQuerySchema,
	CommitQuerySchema,
	DeleteQuerySchema,
	GetQuerySchema,
	InsertQuerySchema,
}

// GetQuery asks for payloads by hash. Without hashes it asks for the last inserted payload.
type GetQuery struct {
	Schema string      `json:"schema"`
	Hashes []hash.Hash `json:"hashes,omitempty"`
}

// InsertQuery asks to store the payloads attached to the query. When Payloads is set only the
// listed attachments are stored, and every one of them must be attached.
type InsertQuery struct {
	Schema   string      `json:"schema"`
	Payloads []hash.Hash `json:"payloads,omitempty"`
}

type DeleteQuery struct {
	Schema string      `json:"schema"`
	Hashes []hash.Hash `json:"hashes"`
}

type DeleteResult struct {
	Schema  string      `json:"schema"`
	Hashes  []hash.Hash `json:"hashes"`
	Deleted []bool      `json:"deleted"`
}
