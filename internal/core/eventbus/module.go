// Package eventbus 实现事件总线
package eventbus

import (
	"go.uber.org/fx"

	pkgif "github.com/flowmesh/go-flowmesh/pkg/interfaces"
)

// Module 是 eventbus 的 Fx 模块
var Module = fx.Module("eventbus",
	fx.Provide(
		fx.Annotate(
			NewBus,
			fx.As(new(pkgif.EventBus)),
		),
	),
)
