package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	ToolHost   bool      `json:"tool_host"`
	LLM        bool      `json:"llm"`
	LastCheck  time.Time `json:"last_check"`
}
