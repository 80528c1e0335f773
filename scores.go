/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/hitline/store"
)

const (
	defaultScoresLimit = 10
	maxScoresLimit     = 100
)

type scoreboard interface {
	Record(score store.Score) (store.Score, error)
	Top(limit int) ([]store.Score, error)
}

func serveScores(cfg *Config, scores scoreboard, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		securityHeaders(cfg, w)

		if scores == nil {
			http.Error(w, "scoreboard disabled", http.StatusNotFound)

			return
		}

		limit := defaultScoresLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxScoresLimit {
				http.Error(w, "invalid limit", http.StatusBadRequest)

				return
			}
			limit = n
		}

		top, err := scores.Top(limit)
		if err != nil {
			errs <- err
			http.Error(w, "could not read scoreboard", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(top); err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Scoreboard (%d entries) to %s in %s",
			len(top),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
