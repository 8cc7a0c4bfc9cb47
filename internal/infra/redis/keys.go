package redis

import (
	"fmt"

	"spotai-game-service/internal/domain"
)

// Key layout. Everything the service touches in Redis funnels through these
// helpers so the namespace stays auditable in one place.

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("user_session_images:%s:%s", userID, sessionID)
}

func playLimitKey(userID, date string) string {
	return fmt.Sprintf("play_limit:%s:%s", userID, date)
}

func roundStartKey(sessionID string, round int) string {
	return fmt.Sprintf("round_start:%s:%d", sessionID, round)
}

func dailyGameKey(date string) string {
	return fmt.Sprintf("daily_game:%s", date)
}

func completionKey(userID, date string) string {
	return fmt.Sprintf("daily_completion:%s:%s", userID, date)
}

func imageCollectionKey(date string) string {
	return fmt.Sprintf("image_collection:%s", date)
}

func userDataKey(userID string) string {
	return fmt.Sprintf("user_data:%s", userID)
}

func leaderboardKey(typ domain.LeaderboardType, period string) string {
	if typ == domain.LeaderboardAllTime {
		return "leaderboard:alltime"
	}
	return fmt.Sprintf("leaderboard:%s:%s", typ, period)
}
