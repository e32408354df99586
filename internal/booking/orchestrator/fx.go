package orchestrator

import (
	"github.com/smallbiznis/bookingrelay/internal/accounting"
	"github.com/smallbiznis/bookingrelay/internal/requestcontext"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.orchestrator",
	fx.Provide(
		func(a *requestcontext.Assembler) ContextAssembler { return a },
		func(c *accounting.Coordinator) SideEffects { return c },
		NewOrchestrator,
	),
)
