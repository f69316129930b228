package redis

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ms-marketplace/internal/logger"

	"github.com/go-redis/redis/v8"
)

const (
	lockPrefix = "enrollment_lock:"

	DefaultLockTTL = 15 * time.Minute
)

// EnrollmentLock reserves (user, course) pairs for a pending order so the
// same student cannot buy a course twice while a payment is in flight.
type EnrollmentLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewEnrollmentLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *EnrollmentLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &EnrollmentLock{Client: client, TTL: ttl, Logger: log}
}

// LockKey is the Redis key holding the order that reserved a course for a
// user. Both IDs are escaped so a ':' inside either cannot shift the split.
func LockKey(userID, courseID string) string {
	return lockPrefix + url.QueryEscape(userID) + ":" + url.QueryEscape(courseID)
}

// ParseLockKey splits a lock key back into user and course IDs.
func ParseLockKey(key string) (userID, courseID string, ok bool) {
	rest := strings.TrimPrefix(key, lockPrefix)
	if rest == key {
		return "", "", false
	}
	rawUser, rawCourse, ok := strings.Cut(rest, ":")
	if !ok || rawUser == "" || rawCourse == "" || strings.Contains(rawCourse, ":") {
		return "", "", false
	}
	userID, errUser := url.QueryUnescape(rawUser)
	courseID, errCourse := url.QueryUnescape(rawCourse)
	if errUser != nil || errCourse != nil {
		return "", "", false
	}
	return userID, courseID, true
}

// IsLocked reports whether a course is reserved for the user.
func (l *EnrollmentLock) IsLocked(ctx context.Context, userID, courseID string) (bool, error) {
	n, err := l.Client.Exists(ctx, LockKey(userID, courseID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Lock a single course
func (l *EnrollmentLock) lockCourse(ctx context.Context, userID, courseID, orderID string) (bool, error) {
	return l.Client.SetNX(ctx, LockKey(userID, courseID), orderID, l.TTL).Result()
}

// Unlock a single course, only if it is still held by orderID
func (l *EnrollmentLock) unlockCourse(ctx context.Context, userID, courseID, orderID string) error {
	key := LockKey(userID, courseID)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already unlocked
	}
	if err != nil {
		return err
	}
	if val == orderID {
		return l.Client.Del(ctx, key).Err()
	}
	return nil
}

// LockCourses reserves every course or none of them.
func (l *EnrollmentLock) LockCourses(ctx context.Context, userID string, courseIDs []string, orderID string) (bool, error) {
	locked := make([]string, 0, len(courseIDs))
	release := func() {
		for _, id := range locked {
			_ = l.unlockCourse(ctx, userID, id, orderID)
		}
	}

	for _, courseID := range courseIDs {
		ok, err := l.lockCourse(ctx, userID, courseID, orderID)
		if err != nil {
			release()
			return false, fmt.Errorf("lock course %s: %w", courseID, err)
		}
		if !ok {
			release()
			if l.Logger != nil {
				l.Logger.LogOrder("LOCK_REJECTED", orderID, fmt.Sprintf("course %s already reserved for user %s", courseID, userID))
			}
			return false, nil
		}
		locked = append(locked, courseID)
	}
	return true, nil
}

// UnlockCourses releases the courses held by orderID. The first error is
// returned after every course has been tried.
func (l *EnrollmentLock) UnlockCourses(ctx context.Context, userID string, courseIDs []string, orderID string) error {
	var firstErr error
	for _, courseID := range courseIDs {
		if err := l.unlockCourse(ctx, userID, courseID, orderID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
