package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdCollectNow   CommandType = "collect_now"
	CmdCollectSite  CommandType = "collect_site"
	CmdPause        CommandType = "pause"
	CmdResume       CommandType = "resume"
	CmdRunSnapshot  CommandType = "run_snapshot"
	CmdRunLinkCheck CommandType = "run_linkcheck"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Site     string `json:"site,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	MaxCount int    `json:"max_count,omitempty"`
}
