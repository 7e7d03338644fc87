package rates

import "go.uber.org/fx"

// Module provides the currency-rate repository to Fx.
var Module = fx.Provide(NewRepository)
