// Package main provides the authorization HTTP API for the money movement
// pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/notcrow/TransacoesFinanceiras/internal/config"
	"github.com/notcrow/TransacoesFinanceiras/internal/logger"
	"github.com/notcrow/TransacoesFinanceiras/internal/model"
	"github.com/notcrow/TransacoesFinanceiras/internal/repository"
	"github.com/notcrow/TransacoesFinanceiras/internal/service"
)

const (
	contentTypeJSON = "Content-Type"
	applicationJSON = "application/json"
	exitCode        = 1
)

type createTransactionResponse struct {
	TransactionID uuid.UUID               `json:"transactionId"`
	Status        model.TransactionStatus `json:"status"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// healthCheck probes one dependency of the API process.
type healthCheck struct {
	name  string
	probe func(ctx context.Context) error
}

type healthCheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type healthResponse struct {
	Status string              `json:"status"`
	Checks []healthCheckResult `json:"checks"`
}

// APIServer handles HTTP requests for transaction authorization.
type APIServer struct {
	transactions service.AuthorizationService
	accounts     repository.AccountRepository
	statements   repository.StatementRepository
	checks       []healthCheck
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(
	transactions service.AuthorizationService,
	accounts repository.AccountRepository,
	statements repository.StatementRepository,
	checks []healthCheck,
) *APIServer {
	return &APIServer{
		transactions: transactions,
		accounts:     accounts,
		statements:   statements,
		checks:       checks,
	}
}

// CreateAccount handles POST /accounts.
func (s *APIServer) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var params model.CreateAccountParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid JSON"})
		return
	}

	if err := params.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	account := &model.Account{
		ID:         uuid.New(),
		HolderName: params.HolderName,
		Balance:    params.InitialBalance,
		Version:    0,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.accounts.Create(r.Context(), account); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// CreateTransaction handles POST /transactions.
func (s *APIServer) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var params model.CreateTransactionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid JSON"})
		return
	}

	transaction, err := s.transactions.CreateTransaction(r.Context(), &params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createTransactionResponse{
		TransactionID: transaction.ID,
		Status:        transaction.Status,
	})
}

// GetTransaction handles GET /transactions/{transactionID}.
func (s *APIServer) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid transaction id"})
		return
	}

	transaction, err := s.transactions.GetTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transaction)
}

// GetStatement handles GET /accounts/{accountID}/statement. The statement is
// a read model fed by the projection consumer, so it may lag recent
// settlements.
func (s *APIServer) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid account id"})
		return
	}

	statement, err := s.statements.GetByAccountID(r.Context(), accountID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statement)
}

// HealthCheck handles GET /health.
func (s *APIServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{Status: "healthy"}
	code := http.StatusOK

	for _, check := range s.checks {
		status := "healthy"
		if err := check.probe(r.Context()); err != nil {
			status = "unhealthy"
			response.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		response.Checks = append(response.Checks, healthCheckResult{Name: check.name, Status: status})
	}

	writeJSON(w, code, response)
}

func (*APIServer) writeError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
	case model.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: err.Error()})
	default:
		slog.Error("unexpected error handling request", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set(contentTypeJSON, applicationJSON)
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// Router builds the API route table.
func (s *APIServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/accounts", s.CreateAccount)
	r.Post("/transactions", s.CreateTransaction)
	r.Get("/transactions/{transactionID}", s.GetTransaction)
	r.Get("/accounts/{accountID}/statement", s.GetStatement)
	r.Get("/health", s.HealthCheck)

	return r
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	slog.SetDefault(logger.Setup(cfg.LogLevel, "api"))

	threshold, err := decimal.NewFromString(cfg.HighValueThreshold)
	if err != nil {
		slog.Error("invalid high-value threshold", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	dbPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer dbPool.Close()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		slog.Error("failed to connect to MongoDB", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	accountRepo := repository.NewAccountRepositoryImpl(dbPool)
	transactionRepo := repository.NewTransactionRepositoryImpl(dbPool)
	outboxRepo := repository.NewOutboxRepositoryImpl(dbPool)
	transactionMgr := repository.NewTransactionManagerImpl(dbPool)
	statementRepo := repository.NewStatementRepositoryImpl(mongoClient.Database(cfg.MongoDatabase))

	authService := service.NewAuthorizationServiceImpl(
		accountRepo, transactionRepo, outboxRepo, transactionMgr, threshold,
	)

	checks := []healthCheck{
		{name: "postgres", probe: dbPool.Ping},
		{name: "mongodb", probe: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}},
	}

	server := NewAPIServer(authService, accountRepo, statementRepo, checks)

	slog.Info("starting API server", slog.String("port", cfg.Port))

	if err := http.ListenAndServe(":"+cfg.Port, server.Router()); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to start server", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
}
