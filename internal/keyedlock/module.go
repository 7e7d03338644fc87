package keyedlock

import "go.uber.org/fx"

// Module provides the shared lock registry to Fx.
var Module = fx.Provide(New)
