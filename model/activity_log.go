package model

import "time"

type LogType string

const (
	LogTypeError    LogType = "error"
	LogTypeActivity LogType = "activity"
)

type ActivityLog struct {
	ID          int64     `json:"-"`
	LogID       string    `json:"log_id"`
	Type        LogType   `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
