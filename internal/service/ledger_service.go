package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/futsalon/internal/calculator"
	"github.com/mmynk/futsalon/internal/metrics"
	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/storage"
)

const (
	// LedgerServiceName is the fully-qualified name of the LedgerService.
	LedgerServiceName = "futsalon.v1.LedgerService"

	// GetLedgerProcedure returns every player's debt and the group totals.
	GetLedgerProcedure = "/" + LedgerServiceName + "/GetLedger"
	// GetPlayerLedgerProcedure returns one player's debt and payment history.
	GetPlayerLedgerProcedure = "/" + LedgerServiceName + "/GetPlayerLedger"
	// ListPlayersProcedure returns the roster for pickers and autocompletion.
	ListPlayersProcedure = "/" + LedgerServiceName + "/ListPlayers"
)

type GetLedgerRequest struct{}

type GetLedgerResponse struct {
	Entries     []calculator.PlayerDebt `json:"entries"`
	TotalIncome decimal.Decimal         `json:"total_income"`
	TotalDebt   decimal.Decimal         `json:"total_debt"`
}

type GetPlayerLedgerRequest struct {
	PlayerID int64 `json:"player_id"`
}

type GetPlayerLedgerResponse struct {
	Entry    calculator.PlayerDebt `json:"entry"`
	Payments []models.Payment      `json:"payments"`
}

type ListPlayersRequest struct{}

type ListPlayersResponse struct {
	Players []models.Player `json:"players"`
}

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store   storage.Store
	metrics *metrics.Metrics
}

// NewLedgerService creates a new LedgerService with the given storage backend.
func NewLedgerService(store storage.Store, m *metrics.Metrics) *LedgerService {
	return &LedgerService{store: store, metrics: m}
}

// GetLedger computes the ledger for the whole group.
func (s *LedgerService) GetLedger(ctx context.Context, req *connect.Request[GetLedgerRequest]) (*connect.Response[GetLedgerResponse], error) {
	snap, err := LoadLedger(ctx, s.store, s.metrics)
	if err != nil {
		slog.Error("GetLedger failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetLedgerResponse{
		Entries:     snap.Ledger.Entries,
		TotalIncome: snap.Ledger.TotalIncome,
		TotalDebt:   snap.Ledger.TotalDebt,
	}), nil
}

// GetPlayerLedger returns one player's ledger line and payments.
func (s *LedgerService) GetPlayerLedger(ctx context.Context, req *connect.Request[GetPlayerLedgerRequest]) (*connect.Response[GetPlayerLedgerResponse], error) {
	playerID := req.Msg.PlayerID
	if playerID <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("player_id is required"))
	}

	if _, err := s.store.Players().Get(ctx, playerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	snap, err := LoadLedger(ctx, s.store, s.metrics)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	entry, ok := snap.Ledger.Player(playerID)
	if !ok {
		// Deleted between the two reads.
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrNotFound)
	}

	payments, err := s.store.Payments().ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetPlayerLedgerResponse{Entry: entry, Payments: payments}), nil
}

// ListPlayers returns every player.
func (s *LedgerService) ListPlayers(ctx context.Context, req *connect.Request[ListPlayersRequest]) (*connect.Response[ListPlayersResponse], error) {
	players, err := s.store.Players().List(ctx)
	if err != nil {
		slog.Error("ListPlayers failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&ListPlayersResponse{Players: players}), nil
}

// NewLedgerServiceHandler builds an HTTP handler for every LedgerService
// procedure. It returns the path on which to mount the handler and the
// handler itself. The JSON codec is always installed.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	getLedger := connect.NewUnaryHandler(GetLedgerProcedure, svc.GetLedger, opts...)
	getPlayerLedger := connect.NewUnaryHandler(GetPlayerLedgerProcedure, svc.GetPlayerLedger, opts...)
	listPlayers := connect.NewUnaryHandler(ListPlayersProcedure, svc.ListPlayers, opts...)

	return "/" + LedgerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GetLedgerProcedure:
			getLedger.ServeHTTP(w, r)
		case GetPlayerLedgerProcedure:
			getPlayerLedger.ServeHTTP(w, r)
		case ListPlayersProcedure:
			listPlayers.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
