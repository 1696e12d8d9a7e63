package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Entry describes one action to record. Actor, IP address and user agent
// are taken from the request context when not set explicitly.
type Entry struct {
	CondominiumID *snowflake.ID
	Action        string
	TargetType    string
	TargetID      string
	Metadata      datatypes.JSONMap
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}
