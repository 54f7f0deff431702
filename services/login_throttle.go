package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"bakery-storefront/storage"

	"go.uber.org/zap"
)

const LoginCooldownCapSeconds = 30

var ErrLoginThrottled = errors.New("login throttled")

type loginThrottle struct {
	FailCount     int       `json:"fail_count"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	if failCount < 0 {
		return 1
	}
	// 2^5 already exceeds the cap; larger shifts would overflow
	if failCount >= 5 {
		return LoginCooldownCapSeconds
	}
	return 1 << failCount
}

func (f *Forms) loadThrottle(ctx context.Context) loginThrottle {
	var t loginThrottle
	data, ok, err := f.store.Get(ctx, storage.KeyLoginThrottle)
	if err != nil || !ok {
		return t // no row = no throttle
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return loginThrottle{}
	}
	return t
}

// loginWaitSeconds returns how many seconds the user must wait before trying
// again (0 if no cooldown).
func (f *Forms) loginWaitSeconds(ctx context.Context) int {
	t := f.loadThrottle(ctx)
	now := f.now()
	if t.CooldownUntil.IsZero() || !now.Before(t.CooldownUntil) {
		return 0
	}
	return int(math.Ceil(t.CooldownUntil.Sub(now).Seconds()))
}

func (f *Forms) recordLoginFailed(ctx context.Context) {
	t := f.loadThrottle(ctx)
	t.FailCount++
	t.CooldownUntil = f.now().Add(time.Duration(CooldownSecondsForFailCount(t.FailCount)) * time.Second)
	data, err := json.Marshal(t)
	if err == nil {
		err = f.store.Set(ctx, storage.KeyLoginThrottle, data)
	}
	if err != nil {
		f.logger.Warn("record failed login", zap.Error(err))
	}
}

func (f *Forms) recordLoginSuccess(ctx context.Context) {
	if err := f.store.Delete(ctx, storage.KeyLoginThrottle); err != nil {
		f.logger.Warn("reset login throttle", zap.Error(err))
	}
}

func throttledMessage(wait int) string {
	return fmt.Sprintf("Too many attempts. Try again in %d seconds.", wait)
}
