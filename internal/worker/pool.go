package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tutoria-backend/internal/repository"
)

const ArchivalQueue = "queue:timer-archival"

// ArchivalJob asks a worker to move a terminal session's timer record
// into the archive table.
type ArchivalJob struct {
	SessionID uuid.UUID `json:"session_id"`
}

// Enqueue pushes an archival job. Called by the session handlers when a
// session reaches completed or cancelled.
func Enqueue(ctx context.Context, redisClient *redis.Client, job ArchivalJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return redisClient.RPush(ctx, ArchivalQueue, data).Err()
}

type Pool struct {
	redis       *redis.Client
	timerRepo   *repository.TimerRecordRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, timerRepo *repository.TimerRecordRepo, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		timerRepo:   timerRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d archival workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Archival worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, ArchivalQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job ArchivalJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Archival worker %d: dropping malformed job: %v", id, err)
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := p.timerRepo.Archive(jobCtx, job.SessionID); err != nil {
			log.Printf("Archival worker %d: failed to archive session %s: %v", id, job.SessionID, err)
		}
		cancel()
	}
}
