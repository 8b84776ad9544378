package model

import "time"

type SecurityStats struct {
	SessionStats struct {
		Active       int       `json:"active"`
		LastActiveAt time.Time `json:"last_active_at"`
	} `json:"session_stats"`
	LockStats struct {
		Events     int       `json:"events"`
		LastLocked time.Time `json:"last_locked,omitempty"`
	} `json:"lock_stats"`
	AccountStats struct {
		AccountCreated   time.Time `json:"account_created"`
		TwoFactorEnabled bool      `json:"two_factor_enabled"`
	} `json:"account_stats"`
	SystemStats struct {
		CPUUsage          float64 `json:"cpu_usage"`
		ActiveConnections int64   `json:"active_db_connections"`
	} `json:"system_stats"`
}
