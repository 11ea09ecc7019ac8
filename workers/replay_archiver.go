package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"connect-four-arena/game"
	"connect-four-arena/utils"
)

// ReplayArchiver uploads settled-match replays to R2 in the background.
// The manager hands replays over through a buffered channel; when the
// buffer is full the replay is dropped rather than stalling settlement.
type ReplayArchiver struct {
	replays chan game.Replay
}

func NewReplayArchiver() *ReplayArchiver {
	return &ReplayArchiver{
		replays: make(chan game.Replay, 64),
	}
}

// Archive implements game.Archiver. Never blocks.
func (a *ReplayArchiver) Archive(rep game.Replay) {
	select {
	case a.replays <- rep:
	default:
		log.Printf("⚠️ Replay buffer full, dropping replay for match %s", rep.MatchID)
	}
}

// Run drains the replay queue until ctx is cancelled.
func (a *ReplayArchiver) Run(ctx context.Context) {
	log.Println("🔁 Replay archiver started")
	for {
		select {
		case rep := <-a.replays:
			a.upload(ctx, rep)
		case <-ctx.Done():
			log.Println("⏹️ Replay archiver stopped")
			return
		}
	}
}

func (a *ReplayArchiver) upload(ctx context.Context, rep game.Replay) {
	payload, err := json.Marshal(rep)
	if err != nil {
		log.Printf("❌ Failed to encode replay %s: %v", rep.MatchID, err)
		return
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	key := fmt.Sprintf("replays/%s.json", rep.MatchID)
	if err := utils.UploadBytesToR2(uploadCtx, key, payload, "application/json"); err != nil {
		log.Printf("❌ Failed to archive replay %s: %v", rep.MatchID, err)
		return
	}
	log.Printf("📦 Replay archived: %s", key)
}
