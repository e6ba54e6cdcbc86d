package nakama

// RPC ids clients call on the runtime.
const (
	RpcIdMove               = "fortnight_move"
	RpcIdPerformAction      = "fortnight_perform_action"
	RpcIdEndTurn            = "fortnight_end_turn"
	RpcIdUseResolve         = "fortnight_use_resolve"
	RpcIdRequestInteraction = "fortnight_request_interaction"
	RpcIdRespondInteraction = "fortnight_respond_interaction"
	RpcIdSessionState       = "fortnight_session_state"
)

// Runtime environment keys (nakama.yml runtime.env entries).
const (
	EnvDatabasePath = "fortnight_db_path"
	EnvConfigPath   = "fortnight_config_path"
)

// Notification codes for server -> client events.
const (
	NotificationTurnStarted          = 101
	NotificationStateUpdated         = 102
	NotificationInteractionRequested = 103
	NotificationInteractionResolved  = 104
	NotificationResourceRecovered    = 105
	NotificationGameEnded            = 106
)
