// This file contains join type definitions that form the "toolbox" of
// reusable join configurations. These can be composed into any dialect.

package dialect

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// ANSIJoinTypes contains standard SQL join types.
var ANSIJoinTypes = []JoinTypeDef{
	{
		Token:       token.INNER,
		Type:        string(core.JoinInner),
		RequiresOn:  true,
		AllowsUsing: true,
	},
	{
		Token:         token.LEFT,
		Type:          string(core.JoinLeft),
		OptionalToken: token.OUTER,
		RequiresOn:    true,
		AllowsUsing:   true,
	},
	{
		Token:         token.RIGHT,
		Type:          string(core.JoinRight),
		OptionalToken: token.OUTER,
		RequiresOn:    true,
		AllowsUsing:   true,
	},
	{
		Token:         token.FULL,
		Type:          string(core.JoinFull),
		OptionalToken: token.OUTER,
		RequiresOn:    true,
		AllowsUsing:   true,
	},
	{
		Token:       token.CROSS,
		Type:        string(core.JoinCross),
		RequiresOn:  false,
		AllowsUsing: false,
	},
}
