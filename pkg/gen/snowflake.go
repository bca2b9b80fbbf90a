package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("snowflake", fx.Provide(NewNode))

// NewNode returns the id generator shared by every create path.
func NewNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
