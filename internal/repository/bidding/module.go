package bidding

import "go.uber.org/fx"

// Module provides the bid repository to Fx.
var Module = fx.Provide(NewRepository)
