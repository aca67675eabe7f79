// cmd/trackgate/main.go
//
// trackgate – per-site tracking switch.
//
// Commands
// --------
//
//	trackgate serve              – tracking endpoint + admin API + /metrics
//	trackgate install            – create the site_disable table
//	trackgate sites list         – every site with its state
//	trackgate sites set 1 4 9    – make the disabled set exactly {1,4,9}
//	trackgate sites disable 4    – switch tracking off for one site
//	trackgate sites enable 4     – switch it back on
//	trackgate sites history 4    – disable intervals for one site
//	trackgate sites encode 4     – public token for a site (sqids decoder)
//
// Every command loads configuration the same way (see internal/config) and
// logs through the global zap logger.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
