package router

import "go.uber.org/fx"

// Module provides the gin engine serving the order API, event stream and metrics.
var Module = fx.Provide(Setup)
