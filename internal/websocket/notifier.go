package websocket

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tutoria-backend/internal/models"
	"tutoria-backend/internal/timer"
)

// Notifier routes timer snapshots to session participants through
// their per-user Redis channels, where the hub (in this or any other
// process) picks them up. It implements timer.Publisher.
type Notifier struct {
	redis *redis.Client
}

func NewNotifier(redisClient *redis.Client) *Notifier {
	return &Notifier{redis: redisClient}
}

type timerUpdateMessage struct {
	Type     string         `json:"type"`
	Snapshot timer.Snapshot `json:"snapshot"`
}

func (n *Notifier) PublishSnapshot(session models.TutoringSession, snap timer.Snapshot) {
	data, err := json.Marshal(timerUpdateMessage{Type: "timer_update", Snapshot: snap})
	if err != nil {
		log.Printf("notifier: failed to marshal snapshot: %v", err)
		return
	}

	ctx := context.Background()
	n.publishTo(ctx, session.StudentID, data)
	if session.ProfessorID != nil {
		n.publishTo(ctx, *session.ProfessorID, data)
	}
}

func (n *Notifier) publishTo(ctx context.Context, userID uuid.UUID, data []byte) {
	if err := n.redis.Publish(ctx, userChannel(userID), data).Err(); err != nil {
		log.Printf("notifier: failed to publish to user %s: %v", userID, err)
	}
}
