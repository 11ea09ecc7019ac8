package services

import (
	"log"
	"time"

	"connect-four-arena/game"

	"github.com/go-co-op/gocron/v2"
)

const pendingRoomMaxAge = 30 * time.Minute

// StartRoomSweeper runs a minutely job that asks the manager to close
// rooms stuck waiting for an opponent. The sweep itself executes on the
// manager goroutine, so the job only enqueues work.
func StartRoomSweeper(manager *game.Manager) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Scheduler] Failed to start room sweeper: %v", err)
		return
	}
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			manager.SweepPendingRooms(pendingRoomMaxAge)
		}),
	)
}
