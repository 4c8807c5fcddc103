package main

import (
	"ddfeed/cmd/ddfeed/commands"
	"ddfeed/internal/components/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
