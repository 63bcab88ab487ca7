// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jessevdk/go-flags"
)

const (
	// DefaultSSEURL is the event stream endpoint of the reference Devin
	// deployment.
	DefaultSSEURL = "https://mcp.devin.ai/sse"
	// DefaultRPCURL is the provisional JSON-RPC endpoint. It is replaced at
	// runtime once the server announces the real one via an endpoint event.
	DefaultRPCURL = "https://mcp.devin.ai/mcp"

	defaultLogLevel = "info"
)

// Options declares the command line surface of the bridge.
type Options struct {
	APIKey   string `long:"api-key" env:"DEVIN_API_KEY" description:"Devin personal API key (falls back to DEVIN_API_KEY)"`
	SSEURL   string `long:"sse-url" description:"remote SSE endpoint"`
	RPCURL   string `long:"rpc-url" description:"remote JSON-RPC endpoint"`
	LogLevel string `long:"log-level" description:"logging verbosity"`
	Insecure bool   `long:"insecure" description:"skip TLS verification of the remote endpoints"`
}

// Config captures runtime settings for the bridge.
type Config struct {
	APIKey string
	SSEURL string
	RPCURL string
	// RPCOverridden is true when the RPC URL was configured explicitly. The
	// default URL is provisional until the server announces an endpoint, so
	// only an override makes the bridge ready to send immediately.
	RPCOverridden      bool
	LogLevel           string
	InsecureSkipVerify bool
}

// Load parses command line arguments and environment fallbacks into a
// validated Config.
func Load(args []string) (Config, error) {
	opts := Options{
		SSEURL:   DefaultSSEURL,
		RPCURL:   DefaultRPCURL,
		LogLevel: defaultLogLevel,
	}
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		return Config{}, err
	}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return Config{}, errors.New("API key is required: provide --api-key or set DEVIN_API_KEY")
	}

	if err := requireAbsolute("--sse-url", opts.SSEURL); err != nil {
		return Config{}, err
	}
	if err := requireAbsolute("--rpc-url", opts.RPCURL); err != nil {
		return Config{}, err
	}

	return Config{
		APIKey:             apiKey,
		SSEURL:             opts.SSEURL,
		RPCURL:             opts.RPCURL,
		RPCOverridden:      opts.RPCURL != DefaultRPCURL,
		LogLevel:           strings.ToLower(opts.LogLevel),
		InsecureSkipVerify: opts.Insecure,
	}, nil
}

func requireAbsolute(flag, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flag, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("%s must be absolute (scheme://host)", flag)
	}
	return nil
}
