package engine

import (
	bookingdomain "github.com/smallbiznis/bookingrelay/internal/booking/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.engine",
	fx.Provide(
		NewClient,
		func(c *Client) bookingdomain.Engine { return c },
	),
)
