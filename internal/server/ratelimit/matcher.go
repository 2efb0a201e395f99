package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is returned for paths that are never throttled.
var unlimited = EndpointConfig{}

// MatchEndpoint returns the configuration governing a request, or nil when the
// default limit applies. An exact path wins over a prefix; among prefixes (paths
// ending in "/", so "/hunts/" covers "/hunts/{id}/events") the longest wins.
// An empty Method matches every method.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == http.MethodGet {
		cfg := unlimited
		return &cfg
	}

	var best *EndpointConfig
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method != "" && cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg
		}
		if strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			if best == nil || len(cfg.Path) > len(best.Path) {
				best = cfg
			}
		}
	}
	return best
}
