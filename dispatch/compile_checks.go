package dispatch

import "github.com/goliatone/go-broadcast/core"

var (
	_ TokenSource = (*core.Service)(nil)
	_ Clock       = SystemClock{}
)
