// Package autoload initializes the global logger from LOG_* environment
// variables. Blank-import it from main.
package autoload

import (
	configx "github.com/voxline/custodyline/pkg/config"
	logx "github.com/voxline/custodyline/pkg/logger"
)

func init() {
	conf := configx.MustNew[logx.Config]("LOG")
	logx.Init(*conf)
}
