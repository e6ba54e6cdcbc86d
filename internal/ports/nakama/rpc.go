package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/app"
	"fortnight/internal/domain"
	"fortnight/internal/ports"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codePermissionDenied   = 7
	codeResourceExhausted  = 8
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnavailable        = 14
)

// service bundles the components the RPC handlers dispatch into.
type service struct {
	store  ports.Store
	turns  *app.Coordinator
	exec   *app.Executor
	broker *app.Broker
}

type rpcHandler func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// RegisterRPCs registers the game's RPC surface with the runtime.
func (s *service) RegisterRPCs(initializer runtime.Initializer) error {
	handlers := map[string]rpcHandler{
		RpcIdMove:               s.rpcMove,
		RpcIdPerformAction:      s.rpcPerformAction,
		RpcIdEndTurn:            s.rpcEndTurn,
		RpcIdUseResolve:         s.rpcUseResolve,
		RpcIdRequestInteraction: s.rpcRequestInteraction,
		RpcIdRespondInteraction: s.rpcRespondInteraction,
		RpcIdSessionState:       s.rpcSessionState,
	}
	for id, handler := range handlers {
		if err := initializer.RegisterRpc(id, handler); err != nil {
			return err
		}
	}
	return nil
}

type moveRequest struct {
	SessionID string `json:"session_id"`
	Target    int    `json:"target"`
}

func (s *service) rpcMove(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req moveRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", codeInvalidArgument)
	}
	target := domain.Cell(req.Target)
	if !target.Valid() {
		return "", runtime.NewError("invalid target cell", codeInvalidArgument)
	}
	if err := s.exec.Move(ctx, req.SessionID, userID, target); err != nil {
		return "", toRuntimeError(logger, userID, err)
	}
	return okResponse()
}

type actionRequest struct {
	SessionID string `json:"session_id"`
	Action    int    `json:"action"`
}

type actionResponse struct {
	CardID  string `json:"card_id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func (s *service) rpcPerformAction(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return s.runAction(ctx, logger, payload, s.exec.PerformAction)
}

func (s *service) rpcUseResolve(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return s.runAction(ctx, logger, payload, s.exec.UseResolveToken)
}

func (s *service) runAction(ctx context.Context, logger runtime.Logger, payload string,
	perform func(ctx context.Context, sessionID, userID string, action int) (*app.ActionResult, error)) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req actionRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", codeInvalidArgument)
	}
	res, err := perform(ctx, req.SessionID, userID, req.Action)
	if err != nil {
		return "", toRuntimeError(logger, userID, err)
	}
	return marshalResponse(actionResponse{
		CardID:  res.Card.ID,
		Title:   res.Card.Title,
		Summary: res.Summary,
	})
}

type endTurnRequest struct {
	SessionID string `json:"session_id"`
}

type endTurnResponse struct {
	NextPlayer string `json:"next_player,omitempty"`
	GameEnded  bool   `json:"game_ended"`
}

func (s *service) rpcEndTurn(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req endTurnRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", codeInvalidArgument)
	}
	h, err := s.turns.EndTurn(ctx, req.SessionID, userID)
	if err != nil {
		return "", toRuntimeError(logger, userID, err)
	}
	return marshalResponse(endTurnResponse{NextPlayer: h.NextPlayer, GameEnded: h.GameEnded})
}

type interactionRequest struct {
	SessionID   string `json:"session_id"`
	Kind        string `json:"kind"`
	TargetID    string `json:"target_id,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	OfferCardID string `json:"offer_card_id,omitempty"`
	WantCardID  string `json:"want_card_id,omitempty"`
}

type interactionRequestResponse struct {
	InteractionID string `json:"interaction_id"`
	Deadline      string `json:"deadline"`
}

func (s *service) rpcRequestInteraction(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req interactionRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", codeInvalidArgument)
	}
	pending, err := s.broker.Request(ctx, req.SessionID, app.Proposal{
		Kind:        app.InteractionKind(req.Kind),
		RequesterID: userID,
		TargetID:    req.TargetID,
		Amount:      req.Amount,
		OfferCardID: req.OfferCardID,
		WantCardID:  req.WantCardID,
	})
	if err != nil {
		return "", toRuntimeError(logger, userID, err)
	}
	return marshalResponse(interactionRequestResponse{
		InteractionID: pending.ID,
		Deadline:      pending.Deadline.UTC().Format(time.RFC3339),
	})
}

type interactionRespondRequest struct {
	InteractionID string `json:"interaction_id"`
	Accepted      bool   `json:"accepted"`
}

type interactionRespondResponse struct {
	Accepted bool `json:"accepted"`
	TimedOut bool `json:"timed_out"`
}

func (s *service) rpcRespondInteraction(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req interactionRespondRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", codeInvalidArgument)
	}
	out, err := s.broker.Respond(ctx, req.InteractionID, req.Accepted)
	if err != nil {
		return "", toRuntimeError(logger, userID, err)
	}
	return marshalResponse(interactionRespondResponse{Accepted: out.Accepted, TimedOut: out.TimedOut})
}

type sessionStateRequest struct {
	SessionID string `json:"session_id"`
}

type playerState struct {
	UserID        string `json:"user_id"`
	TurnOrder     int    `json:"turn_order"`
	Autonomous    bool   `json:"autonomous"`
	Position      int    `json:"position"`
	ResolveTokens int    `json:"resolve_tokens"`
	Cash          int64  `json:"cash"`
	Insight       int    `json:"insight"`
	Charm         int    `json:"charm"`
	Grit          int    `json:"grit"`
}

type sessionStateResponse struct {
	SessionID         string        `json:"session_id"`
	Day               int           `json:"day"`
	Status            string        `json:"status"`
	CurrentTurnPlayer string        `json:"current_turn_player,omitempty"`
	Players           []playerState `json:"players"`
}

func (s *service) rpcSessionState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	var req sessionStateRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", codeInvalidArgument)
	}
	sess, err := s.store.Session(ctx, req.SessionID)
	if err != nil {
		return "", toRuntimeError(logger, userID, err)
	}
	players, err := s.store.Players(ctx, req.SessionID)
	if err != nil {
		return "", toRuntimeError(logger, userID, err)
	}
	if domain.FindPlayer(players, userID) == nil {
		return "", runtime.NewError("not a player of this session", codePermissionDenied)
	}

	resp := sessionStateResponse{
		SessionID:         sess.ID,
		Day:               sess.Day,
		Status:            string(sess.Status),
		CurrentTurnPlayer: sess.CurrentTurnPlayer,
	}
	for _, p := range players {
		resp.Players = append(resp.Players, playerState{
			UserID:        p.UserID,
			TurnOrder:     p.TurnOrder,
			Autonomous:    p.Autonomous,
			Position:      int(p.Position),
			ResolveTokens: p.ResolveTokens,
			Cash:          p.Cash,
			Insight:       p.Insight,
			Charm:         p.Charm,
			Grit:          p.Grit,
		})
	}
	return marshalResponse(resp)
}

// callerID resolves the authenticated user from the runtime context.
func callerID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("no user session", codePermissionDenied)
	}
	return userID, nil
}

func marshalResponse(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("failed to encode response", codeInternal)
	}
	return string(data), nil
}

func okResponse() (string, error) {
	return `{"ok":true}`, nil
}

// toRuntimeError converts domain errors into runtime errors with gRPC
// status codes, keeping the short machine-readable kind in the message.
func toRuntimeError(logger runtime.Logger, userID string, err error) error {
	code := codeInternal
	switch {
	case errors.Is(err, domain.ErrTurnViolation):
		code = codePermissionDenied
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrCardNotFound),
		errors.Is(err, domain.ErrInteractionNotFound):
		code = codeNotFound
	case errors.Is(err, domain.ErrUnknownAction):
		code = codeInvalidArgument
	case errors.Is(err, domain.ErrNotAdjacent),
		errors.Is(err, domain.ErrImmediateRepeat),
		errors.Is(err, domain.ErrMoveRequired),
		errors.Is(err, domain.ErrAlreadyActed),
		errors.Is(err, domain.ErrWrongCell),
		errors.Is(err, domain.ErrSessionNotRunning):
		code = codeFailedPrecondition
	case errors.Is(err, domain.ErrDeckExhausted),
		errors.Is(err, domain.ErrNoResolveTokens),
		errors.Is(err, domain.ErrInsufficientFunds):
		code = codeResourceExhausted
	case errors.Is(err, domain.ErrStoreTimeout):
		code = codeUnavailable
	case errors.Is(err, domain.ErrDuplicateTurn):
		logger.Error("Turn bookkeeping violation for user %s: %v", userID, err)
		code = codeInternal
	default:
		logger.Error("Unhandled error for user %s: %v", userID, err)
	}
	return runtime.NewError(err.Error(), code)
}
