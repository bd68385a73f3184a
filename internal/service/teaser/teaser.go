package teaser

import (
	"strconv"
	"time"

	"github.com/cosentus/cose-chat/backend/internal/storage"
)

const (
	dismissedKeyPrefix = "cosentus_teaser_dismissed"
	defaultCooldown    = 24 * time.Hour
)

// Service tracks dismissals of the onboarding teaser prompt. A dismissal
// suppresses the teaser for the cooldown window, after which it shows again.
type Service struct {
	kv       storage.Store
	cooldown time.Duration
}

// NewService builds the teaser tracker. A non-positive cooldown gets the
// 24-hour default.
func NewService(kv storage.Store, cooldown time.Duration) *Service {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Service{kv: kv, cooldown: cooldown}
}

// ShouldShow reports whether the teaser may be presented for the given
// widget instance. Unparsable stored timestamps read as never dismissed.
func (s *Service) ShouldShow(clientKey string) bool {
	raw, ok := s.kv.Get(dismissedKey(clientKey))
	if !ok {
		return true
	}
	millis, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return true
	}
	return time.Since(time.UnixMilli(millis)) >= s.cooldown
}

// Dismiss records the dismissal timestamp for the given widget instance.
func (s *Service) Dismiss(clientKey string) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	s.kv.Set(dismissedKey(clientKey), []byte(now))
}

func dismissedKey(clientKey string) string {
	if clientKey == "" {
		return dismissedKeyPrefix
	}
	return dismissedKeyPrefix + "_" + clientKey
}
