package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-analytics/internal/engine"
	"github.com/sells-group/crm-analytics/internal/scenario"
	"github.com/sells-group/crm-analytics/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, st, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: apiRouter(eng),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func apiRouter(eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/churn/{contactID}", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.CalculateChurnRisk(req.Context(), chi.URLParam(req, "tenantID"), chi.URLParam(req, "contactID"))
			respond(w, result, err)
		})
		r.Post("/churn/batch", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				ContactIDs []string `json:"contact_ids"`
			}
			if !decode(w, req, &body) {
				return
			}
			result, err := eng.CalculateBatchChurnRisk(req.Context(), chi.URLParam(req, "tenantID"), body.ContactIDs)
			respond(w, result, err)
		})

		r.Get("/closure/{dealID}", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.CalculateDealClosureProbability(req.Context(), chi.URLParam(req, "tenantID"), chi.URLParam(req, "dealID"))
			respond(w, result, err)
		})
		r.Post("/closure/batch", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				DealIDs []string `json:"deal_ids"`
			}
			if !decode(w, req, &body) {
				return
			}
			result, err := eng.CalculateBatchDealProbabilities(req.Context(), chi.URLParam(req, "tenantID"), body.DealIDs)
			respond(w, result, err)
		})

		r.Get("/upsell/{contactID}", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.CalculateUpsellOpportunity(req.Context(), chi.URLParam(req, "tenantID"), chi.URLParam(req, "contactID"))
			respond(w, result, err)
		})
		r.Post("/upsell/batch", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				ContactIDs []string `json:"contact_ids"`
			}
			if !decode(w, req, &body) {
				return
			}
			result, err := eng.CalculateBatchUpsellOpportunities(req.Context(), chi.URLParam(req, "tenantID"), body.ContactIDs)
			respond(w, result, err)
		})

		r.Get("/high-risk", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.GetHighRiskCustomers(req.Context(), chi.URLParam(req, "tenantID"))
			respond(w, result, err)
		})
		r.Get("/opportunities", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.GetUpsellOpportunities(req.Context(), chi.URLParam(req, "tenantID"))
			respond(w, result, err)
		})
		r.Get("/pipeline/health", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.CalculatePipelineHealth(req.Context(), chi.URLParam(req, "tenantID"))
			respond(w, result, err)
		})

		r.Get("/forecast/timeseries", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.ForecastRevenue(req.Context(), chi.URLParam(req, "tenantID"))
			respond(w, result, err)
		})
		r.Get("/forecast/deals", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.GenerateRevenueForecast(req.Context(), chi.URLParam(req, "tenantID"))
			respond(w, result, err)
		})
		r.Get("/forecast/combined", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.GenerateCombinedForecast(req.Context(), chi.URLParam(req, "tenantID"))
			respond(w, result, err)
		})

		r.Post("/scenario", func(w http.ResponseWriter, req *http.Request) {
			var input scenario.ActionInput
			if !decode(w, req, &input) {
				return
			}
			result, err := eng.RunScenario(req.Context(), chi.URLParam(req, "tenantID"), input)
			respond(w, result, err)
		})
		r.Post("/whatif", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Scenarios []scenario.WhatIfScenario `json:"scenarios"`
				Compare   bool                      `json:"compare"`
			}
			if !decode(w, req, &body) {
				return
			}
			results, err := eng.RunWhatIfAnalysis(req.Context(), chi.URLParam(req, "tenantID"), body.Scenarios)
			if err == nil && body.Compare {
				respond(w, eng.CompareScenarios(results), nil)
				return
			}
			respond(w, results, err)
		})
	})

	return r
}

func decode(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
