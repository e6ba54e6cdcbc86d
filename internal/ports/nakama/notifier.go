package nakama

import (
	"context"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/app"
	"fortnight/internal/ports"
)

// notificationCodes maps app event kinds to Nakama notification codes.
var notificationCodes = map[app.EventKind]int{
	app.EventTurnStarted:          NotificationTurnStarted,
	app.EventStateUpdated:         NotificationStateUpdated,
	app.EventInteractionRequested: NotificationInteractionRequested,
	app.EventInteractionResolved:  NotificationInteractionResolved,
	app.EventResourceRecovered:    NotificationResourceRecovered,
	app.EventGameEnded:            NotificationGameEnded,
}

// NakamaNotifier implements app.Notifier on Nakama's notification system.
// Events without explicit recipients go to every player of the session.
type NakamaNotifier struct {
	nk     runtime.NakamaModule
	store  ports.Store
	logger runtime.Logger
}

// NewNakamaNotifier creates a new notifier adapter.
func NewNakamaNotifier(nk runtime.NakamaModule, store ports.Store, logger runtime.Logger) *NakamaNotifier {
	return &NakamaNotifier{nk: nk, store: store, logger: logger}
}

// Publish delivers the event. Delivery is best effort; a failed send is
// logged and dropped, since clients reload full state on reconnect.
func (n *NakamaNotifier) Publish(ctx context.Context, sessionID string, ev app.Event) {
	recipients := ev.Recipients
	if len(recipients) == 0 {
		players, err := n.store.Players(ctx, sessionID)
		if err != nil {
			n.logger.Warn("Notifier: failed to list players of session %s: %v", sessionID, err)
			return
		}
		for _, p := range players {
			if p.Autonomous {
				continue
			}
			recipients = append(recipients, p.UserID)
		}
	}
	if len(recipients) == 0 {
		return
	}

	content, err := toContent(sessionID, ev.Payload)
	if err != nil {
		n.logger.Warn("Notifier: failed to encode %s payload: %v", ev.Kind, err)
		return
	}
	code, ok := notificationCodes[ev.Kind]
	if !ok {
		n.logger.Warn("Notifier: no notification code for event kind %s", ev.Kind)
		return
	}

	sends := make([]*runtime.NotificationSend, 0, len(recipients))
	for _, userID := range recipients {
		sends = append(sends, &runtime.NotificationSend{
			UserID:     userID,
			Subject:    string(ev.Kind),
			Content:    content,
			Code:       code,
			Persistent: false,
		})
	}
	if err := n.nk.NotificationsSend(ctx, sends); err != nil {
		n.logger.Warn("Notifier: failed to send %s to session %s: %v", ev.Kind, sessionID, err)
	}
}

// toContent converts a typed payload to the map form notifications carry,
// adding the session id so clients can route without extra lookups.
func toContent(sessionID string, payload any) (map[string]interface{}, error) {
	content := map[string]interface{}{"session_id": sessionID}
	if payload == nil {
		return content, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		content[k] = v
	}
	return content, nil
}
