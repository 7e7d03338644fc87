package currency

import "go.uber.org/fx"

// Module provides the currency converter to Fx.
var Module = fx.Provide(NewConverter)
