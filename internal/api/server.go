// Package api serves the web-app companion API: profile and rank lookups,
// game rounds and the leaderboard. Requests are authenticated with the
// Telegram web-app init data signature when a bot token is configured.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"lume_casino_bot/internal/domain"
	"lume_casino_bot/internal/economy"
	"lume_casino_bot/internal/logging"
	"lume_casino_bot/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	leaderboardLimit  = 10
)

// rank thresholds by level, highest first.
var rankTable = []struct {
	minLevel int
	name     string
}{
	{30, "Vaping God"},
	{20, "Cloud Emperor"},
	{15, "Cartridge Lord"},
	{10, "Vape Mage"},
	{5, "Vape Expert"},
	{3, "Vaper"},
	{1, "Novice"},
}

// Profiler is the slice of the ledger the API reads profiles from.
type Profiler interface {
	Profile(ctx context.Context, userID int64) (domain.Account, error)
}

// GamePlayer runs game rounds.
type GamePlayer interface {
	PlayGame(ctx context.Context, userID int64, id domain.GameID, bet float64, externalRoll int) (economy.PlayResult, error)
}

// StatsReader serves the leaderboard and aggregate figures.
type StatsReader interface {
	TopBalances(ctx context.Context, limit int64) ([]store.LeaderboardEntry, error)
	CountAccounts(ctx context.Context) (int64, error)
	TotalCurrency(ctx context.Context) (float64, error)
}

// Server hosts the web-app API and owns the underlying HTTP server.
type Server struct {
	server *http.Server
	logger *logrus.Entry
	ledger Profiler
	games  GamePlayer
	stats  StatsReader
	token  string
}

// NewServer constructs the API server on the provided port. An empty token
// disables init data verification, which is only acceptable in development.
func NewServer(port int, token string, ledger Profiler, games GamePlayer, stats StatsReader, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger: logger,
		ledger: ledger,
		games:  games,
		stats:  stats,
		token:  token,
	}

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Use(srv.requireInitData)
		r.Get("/user/{id}", srv.handleUser)
		r.Post("/game/{game}", srv.handleGame)
		r.Get("/leaderboard", srv.handleLeaderboard)
		r.Get("/stats", srv.handleStats)
	})

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// ListenAndServe starts the API server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "api_listen",
		"addr":  s.server.Addr,
	}).Info("starting api server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server listen: %w", err)
	}

	s.logger.WithField("event", "api_stopped").Info("api server stopped")
	return nil
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

type userResponse struct {
	domain.Account
	Rank string `json:"rank"`
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("ledger is not configured"))
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid user id"))
		return
	}

	acct, err := s.ledger.Profile(r.Context(), userID)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, userResponse{Account: acct, Rank: RankForLevel(acct.Level)})
}

type gameRequest struct {
	UserID int64   `json:"user_id"`
	Bet    float64 `json:"bet"`
	Roll   int     `json:"roll,omitempty"`
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	if s.games == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("game engine is not configured"))
		return
	}

	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	result, err := s.games.PlayGame(r.Context(), req.UserID, domain.GameID(chi.URLParam(r, "game")), req.Bet, req.Roll)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type leaderboardResponse struct {
	Entries []store.LeaderboardEntry `json:"entries"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("stats are not configured"))
		return
	}

	entries, err := s.stats.TopBalances(r.Context(), leaderboardLimit)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}

	s.writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries})
}

type statsResponse struct {
	Accounts      int64   `json:"accounts"`
	TotalCurrency float64 `json:"total_currency"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("stats are not configured"))
		return
	}

	count, err := s.stats.CountAccounts(r.Context())
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	total, err := s.stats.TotalCurrency(r.Context())
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{Accounts: count, TotalCurrency: total})
}

// RankForLevel maps a level to its display rank.
func RankForLevel(level int) string {
	for _, rank := range rankTable {
		if level >= rank.minLevel {
			return rank.name
		}
	}
	return rankTable[len(rankTable)-1].name
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownGame):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidBet),
		errors.Is(err, domain.ErrInvalidRoll),
		errors.Is(err, domain.ErrInvalidOddsValue):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrInsufficientBalance):
		s.writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, domain.ErrOnCooldown):
		s.writeError(w, http.StatusTooManyRequests, err)
	default:
		s.logger.WithField("event", "api_internal_error").WithError(err).Error("request failed")
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithField("event", "api_write_error").WithError(err).Error("failed to encode response")
	}
}
