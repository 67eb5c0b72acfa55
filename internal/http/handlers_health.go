package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 3 * time.Second

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady probes every dependency concurrently and answers 503 if any
// of them fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make([]string, len(s.readiness))
	var g errgroup.Group
	for i, rc := range s.readiness {
		g.Go(func() error {
			if err := rc.Check(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	err := g.Wait()

	checks := make(map[string]string, len(s.readiness))
	for i, rc := range s.readiness {
		checks[rc.Name] = results[i]
	}

	if err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Set("checks", checks).Write(w)
		return
	}
	NewJSONResponse().Set("checks", checks).Write(w)
}
