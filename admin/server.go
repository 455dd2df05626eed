package admin

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"luckybot/config"
	"luckybot/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Server exposes the operator console over HTTP: reviewing accounts and
// orders, settling deposits and withdrawals, and manual balance corrections.
// All routes except the health check sit behind basic auth.
type Server struct {
	accounts    service.AccountService
	deposits    service.DepositService
	withdrawals service.WithdrawalService
	packets     service.PacketService
	cfg         *config.Config
	httpServer  *http.Server
}

// NewServer creates a new admin server
func NewServer(
	accounts service.AccountService,
	deposits service.DepositService,
	withdrawals service.WithdrawalService,
	packets service.PacketService,
	cfg *config.Config,
) *Server {
	return &Server{
		accounts:    accounts,
		deposits:    deposits,
		withdrawals: withdrawals,
		packets:     packets,
		cfg:         cfg,
	}
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.basicAuth)

		r.Get("/accounts", s.listAccounts)
		r.Get("/accounts/{id}/ledger", s.getLedger)
		r.Get("/accounts/{id}/audit", s.auditAccount)
		r.Post("/accounts/{id}/adjust", s.adjustBalance)

		r.Get("/deposits", s.listDeposits)
		r.Post("/deposits/{id}/approve", s.approveDeposit)
		r.Post("/deposits/{id}/reject", s.rejectDeposit)

		r.Get("/withdrawals", s.listWithdrawals)
		r.Post("/withdrawals/{id}/approve", s.approveWithdrawal)
		r.Post("/withdrawals/{id}/reject", s.rejectWithdrawal)

		r.Get("/packets/{id}", s.getPacket)
	})

	return r
}

// Start serves the admin API until the context is cancelled. The server does
// not come up at all without credentials configured.
func (s *Server) Start(ctx context.Context) {
	if s.cfg.AdminUsername == "" || s.cfg.AdminPassword == "" {
		log.Warn("Admin API disabled: ADMIN_USERNAME and ADMIN_PASSWORD not set")
		return
	}

	s.httpServer = &http.Server{
		Addr:    s.cfg.AdminListenAddr,
		Handler: s.Router(),
	}

	go func() {
		log.WithField("addr", s.cfg.AdminListenAddr).Info("Admin API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Admin API server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Admin API shutdown failed")
		}
	}()
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.AdminUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.AdminPassword)) == 1
		if !ok || s.cfg.AdminUsername == "" || !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
