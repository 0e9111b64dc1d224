package session

import (
	"fmt"
	"strings"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/protocol/frame"
)

// PayloadSizeHeadroom is subtracted from the size reported by the peer. The
// StandaloneMM variable service accounts for two bytes the client may not use.
const PayloadSizeHeadroom = 2

// StatusPolicy decides what a non-zero ret_status during negotiation means.
type StatusPolicy string

const (
	// StatusStrict fails negotiation on any non-success ret_status.
	StatusStrict StatusPolicy = "strict"
	// StatusLenient logs the status and trusts the reported size anyway.
	StatusLenient StatusPolicy = "lenient"
)

// Config defines session negotiation behavior.
type Config struct {
	Layout       frame.Layout
	StatusPolicy StatusPolicy
	// MaxPayloadSize bounds a plausible negotiated payload. Zero disables the check.
	MaxPayloadSize int
}

// DefaultConfig returns native-width framing with strict status handling.
func DefaultConfig() Config {
	return Config{
		Layout:         frame.NativeLayout(),
		StatusPolicy:   StatusStrict,
		MaxPayloadSize: 16 * 1024 * 1024,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Layout.WordSize == 0 {
		c.Layout = def.Layout
	}
	if strings.TrimSpace(string(c.StatusPolicy)) == "" {
		c.StatusPolicy = def.StatusPolicy
	}
	return c
}

func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	switch c.StatusPolicy {
	case StatusStrict, StatusLenient:
	default:
		return fmt.Errorf("%w: session: unknown status policy %q", protocol.ErrParam, c.StatusPolicy)
	}
	if c.MaxPayloadSize < 0 {
		return fmt.Errorf("%w: session: negative max payload size", protocol.ErrParam)
	}
	return nil
}

// ParseStatusPolicy accepts the config-file spelling of a policy.
func ParseStatusPolicy(raw string) (StatusPolicy, error) {
	switch p := StatusPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case StatusStrict, StatusLenient:
		return p, nil
	default:
		return "", fmt.Errorf("%w: session: unknown status policy %q", protocol.ErrParam, raw)
	}
}
