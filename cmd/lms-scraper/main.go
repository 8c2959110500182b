package main

import (
	"context"

	"lms-scraper/cmd/lms-scraper/commands"
	"lms-scraper/lib/telemetry"
	"lms-scraper/lib/util/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "lms-scraper")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer t.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
