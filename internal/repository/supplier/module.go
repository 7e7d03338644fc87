package supplier

import "go.uber.org/fx"

// Module provides the supplier repository to Fx.
var Module = fx.Provide(NewRepository)
