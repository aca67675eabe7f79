// internal/admin/handler.go
//
// HTTP surface of the admin service.
//
//	GET  /admin/sites            → {"sites":[{"id":1,"label":"…","url":"…","disabled":false}]}
//	POST /admin/sites/disabled   → save one form
//
// The save accepts either an HTML form (`site=<id>` for every row shown,
// `disabled=<id>` for every checked row) or JSON
// (`{"sites":[{"id":1,"checked":true}]}`).  Form posts are answered with a
// 303 back to the listing; JSON posts get the fresh listing.
//
// Error mapping
// -------------
//   - malformed body, unknown site  → 400
//   - no user                       → 401
//   - missing admin access          → 403
//   - storage failure               → 500 (details logged, not returned)
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/acl"
	"github.com/yanizio/trackgate/internal/disable"
)

// maxBody caps a save request.  Thousands of sites still fit.
const maxBody = 1 << 20

// ErrMalformed marks a request body that could not be parsed.
var ErrMalformed = errors.New("admin: malformed request")

type listResponse struct {
	Sites []disable.SiteState `json:"sites"`
}

type saveRequest struct {
	Sites []Selection `json:"sites"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes mounts the admin endpoints on r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/sites", s.handleList)
	r.Post("/sites/disabled", s.handleSave)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	states, err := s.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Sites: states})
}

func (s *Service) handleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	rows, isJSON, err := decodeSave(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Save(r.Context(), rows); err != nil {
		writeError(w, r, err)
		return
	}

	if !isJSON {
		http.Redirect(w, r, "/admin/sites", http.StatusSeeOther)
		return
	}
	s.handleList(w, r)
}

func decodeSave(r *http.Request) (rows []Selection, isJSON bool, err error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req saveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		for _, sel := range req.Sites {
			if sel.SiteID <= 0 {
				return nil, true, fmt.Errorf("%w: site id %d", ErrMalformed, sel.SiteID)
			}
		}
		return req.Sites, true, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	shown, err := parseIDs(r.PostForm["site"])
	if err != nil {
		return nil, false, err
	}
	checked, err := parseIDs(r.PostForm["disabled"])
	if err != nil {
		return nil, false, err
	}

	on := make(map[int64]bool, len(checked))
	for _, id := range checked {
		on[id] = true
	}
	rows = make([]Selection, 0, len(shown)+len(checked))
	for _, id := range shown {
		rows = append(rows, Selection{SiteID: id, Checked: on[id]})
	}
	// A checked box without its row marker still names a visible site.
	for _, id := range checked {
		rows = append(rows, Selection{SiteID: id, Checked: true})
	}
	return rows, false, nil
}

func parseIDs(vals []string) ([]int64, error) {
	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: site id %q", ErrMalformed, v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		code int
		msg  = err.Error()
	)
	switch {
	case errors.Is(err, ErrMalformed), errors.Is(err, disable.ErrInvalidSite):
		code = http.StatusBadRequest
	case errors.Is(err, acl.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, acl.ErrForbidden):
		code = http.StatusForbidden
	default:
		code = http.StatusInternalServerError
		msg = http.StatusText(code)
		zap.L().Error("admin request failed",
			zap.String("path", r.URL.Path),
			zap.Bool("storage", disable.IsStorageError(err)),
			zap.Error(err))
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("admin response encode", zap.Error(err))
	}
}
