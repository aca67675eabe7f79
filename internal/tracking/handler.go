package tracking

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/gate"
	"github.com/yanizio/trackgate/internal/requestinfo"
)

// Handler records one Event per request and answers 204.  It expects to
// run behind gate.Middleware and requestinfo.Enrich.
func Handler(rec Recorder, param string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev := Event{
			SiteToken: gate.FromHTTP(r, param).SiteToken,
			Path:      r.URL.Path,
			At:        time.Now().UTC(),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			ev.UA = info.UA
			ev.IP = info.Geo.IP
			ev.Country = info.Geo.CountryISO
			ev.At = info.Timestamp
		}

		if err := rec.Record(r.Context(), ev); err != nil {
			// The visitor's page view must not see our failures.
			zap.L().Error("tracking: record event", zap.String("site", ev.SiteToken), zap.Error(err))
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
