package config

import (
	"os"
	"path/filepath"
	"strings"
)

type Bridge struct{}

var _ BridgeConfig = Bridge{}

// AllowedOrigins is the set of hosts the agent bridge will accept callback
// URLs from. Callbacks from any other origin are ignored.
type AllowedOrigins map[string]struct{}

type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func (Bridge) GetAgentAddr() string {
	return GetEnv("AGENT_ADDR", "127.0.0.1:8799")
}

func (Bridge) GetAgentStorePath() string {
	if path := GetEnv("AGENT_STORE_PATH", ""); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "agent-store.json"
	}
	return filepath.Join(home, ".sessiongate", "store.json")
}

func (Bridge) GetBridgeOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	raw := GetEnv("BRIDGE_ORIGINS", "localhost:8000,localhost:8080")
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins[origin] = nullValue{}
		}
	}
	return origins
}
