package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"main/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

type RedisTokenBlacklist struct {
	Client *redis.Client
}

// TokenBlacklist is the global instance
var TokenBlacklist *RedisTokenBlacklist

// NewTokenBlacklist creates a new Redis-backed token blacklist
func NewTokenBlacklist(redisURL string) (*RedisTokenBlacklist, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisTokenBlacklist{Client: client}, nil
}

// BlacklistTokens adds both access and refresh tokens to the blacklist
func BlacklistTokens(accessToken, refreshToken string) error {
	if TokenBlacklist == nil {
		return fmt.Errorf("token blacklist not initialized")
	}

	if err := TokenBlacklist.blacklistSingleToken(accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		return TokenBlacklist.blacklistSingleToken(refreshToken)
	}
	return nil
}

func (tb *RedisTokenBlacklist) blacklistSingleToken(tokenString string) error {
	if tokenString == "" {
		return nil
	}

	// Expired tokens need no blacklist entry; keep the TTL tied to the
	// token's own expiry so entries clean themselves up.
	ttl := remainingTokenTTL(tokenString)
	if ttl <= 0 {
		return nil
	}

	ctx := context.Background()
	key := fmt.Sprintf("blacklist:%s", tokenString)
	if err := tb.Client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %v", err)
	}
	return nil
}

// IsTokenBlacklisted reports whether the token has been revoked. Fails open:
// a Redis error only logs, it never locks out a valid token.
func IsTokenBlacklisted(tokenString string) bool {
	if TokenBlacklist == nil {
		return false
	}

	ctx := context.Background()
	key := fmt.Sprintf("blacklist:%s", tokenString)
	exists, err := TokenBlacklist.Client.Exists(ctx, key).Result()
	if err != nil {
		utils.TrackError("blacklist", "lookup_failed")
		log.Printf("Warning: blacklist lookup failed: %v", err)
		return false
	}
	return exists > 0
}

func remainingTokenTTL(tokenString string) time.Duration {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		// Unparseable tokens are rejected by the auth middleware anyway;
		// give them a short blacklist window.
		return time.Hour
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return time.Hour
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Hour
	}

	return time.Until(time.Unix(int64(exp), 0))
}
